package config

const (
	defaultConfigPath     = "~/.config/subocr/config.toml"
	defaultWorkDir        = "~/.local/share/subocr/work"
	defaultLogDir         = "~/.local/share/subocr/logs"
	defaultHistoryFile    = "history.db"
	defaultOCREngine      = OCREngineCLI
	defaultTesseract      = "tesseract"
	defaultPSM            = 6
	defaultOEM            = 1
	defaultFFmpeg         = "ffmpeg"
	defaultFFprobe        = "ffprobe"
	defaultColorMatrix    = ColorMatrixBT601
	defaultStaleWorkHours = 24
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	// DefaultMinFrameDensity is one subtitle event per minute, expressed in
	// events per millisecond. Tracks below it are treated as forced-only or empty.
	DefaultMinFrameDensity = 1.0 / 60000.0
)

// Supported OCR engines.
const (
	OCREngineCLI     = "cli"
	OCREngineLibrary = "library"
)

// Supported PGS color matrices.
const (
	ColorMatrixBT601 = "bt601"
	ColorMatrixBT709 = "bt709"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		OCR: OCR{
			Engine:          defaultOCREngine,
			TesseractBinary: defaultTesseract,
			PSM:             defaultPSM,
			OEM:             defaultOEM,
			Postprocess:     true,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpeg,
			FFprobeBinary: defaultFFprobe,
		},
		PGS: PGS{
			ColorMatrix: defaultColorMatrix,
		},
		Extract: Extract{
			MinFrameDensity: DefaultMinFrameDensity,
			StaleWorkHours:  defaultStaleWorkHours,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
