package ocr

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"subocr/internal/config"
	"subocr/internal/services"
)

func TestPostprocess(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"|t's fine", "It's fine"},
		{"={Laughs}=", "-(Laughs)-"},
		{"«Hello»", "-Hello-"},
		{"~~", "-"},
		{"a=-b", "a-b"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if got := Postprocess(tt.in); got != tt.want {
			t.Fatalf("Postprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("First line\r\nSecond line\n\nThird  \n\f")
	want := []string{"First line", "Second line", "Third"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitLines = %q, want %q", got, want)
	}
	if lines := SplitLines("\n\f\n"); len(lines) != 0 {
		t.Fatalf("expected no lines, got %q", lines)
	}
}

type recordedCall struct {
	name string
	args []string
}

func TestCLIEngineRecognize(t *testing.T) {
	var calls []recordedCall
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, recordedCall{name: name, args: args})
		return []byte("Hello there\n\f"), nil
	}
	engine := NewCLIEngine("/opt/tesseract", 6, 1, WithCommandRunner(runner))

	text, err := engine.Recognize(context.Background(), "/work/00001000.bmp", "eng")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "Hello there\n\f" {
		t.Fatalf("text = %q", text)
	}
	if len(calls) != 1 || calls[0].name != "/opt/tesseract" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	want := "/work/00001000.bmp stdout --psm 6 --oem 1 -l eng"
	if got := strings.Join(calls[0].args, " "); got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestCLIEngineRecognizeFailure(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}
	_, err := NewCLIEngine("", 6, 1, WithCommandRunner(runner)).Recognize(context.Background(), "x.bmp", "eng")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestCLIEngineLanguages(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if len(args) != 1 || args[0] != "--list-langs" {
			t.Fatalf("unexpected args %v", args)
		}
		return []byte("List of available languages in \"/usr/share/tessdata/\" (3):\r\neng\r\nosd\r\nswe\r\n"), nil
	}
	langs, err := NewCLIEngine("tesseract", 6, 1, WithCommandRunner(runner)).Languages(context.Background())
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if want := []string{"eng", "osd", "swe"}; !reflect.DeepEqual(langs, want) {
		t.Fatalf("langs = %v, want %v", langs, want)
	}
}

func TestNewEngine(t *testing.T) {
	cfg := config.Default()
	engine, err := NewEngine(&cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, ok := engine.(*CLIEngine); !ok {
		t.Fatalf("default engine = %T, want *CLIEngine", engine)
	}

	cfg.OCR.Engine = "bogus"
	if _, err := NewEngine(&cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
