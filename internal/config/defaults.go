package config

const (
	defaultConfigPath       = "~/.config/snapvault/config.toml"
	defaultAlbumRoot        = "~/.local/share/snapvault/album"
	defaultLogDir           = "~/.local/share/snapvault/logs"
	defaultStateDir         = "~/.local/share/snapvault"
	defaultArchiveDir       = "/PNGs"
	defaultTempName         = "temp.png"
	defaultArchiveExtension = "png"
	defaultCaptureSource    = SourceRaw
	defaultCaptureDevice    = "/dev/snapvault0"
	defaultCaptureWidth     = 1280
	defaultCaptureHeight    = 720
	defaultOpenTimeoutMS    = 100
	defaultCompressionLevel = 9
	defaultCaptureStrategy  = StrategyRows
	defaultMarkerPath       = "~/.config/snapvault/allow_jpegs"
	defaultDuplicateExt     = "jpg"
	defaultDuplicateRoot    = "/"
	defaultDuplicateScope   = ScopeTree
	defaultUdevSubsystem    = "input"
	defaultUdevAction       = "add"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	albumRootEnv            = "SNAPVAULT_ALBUM_ROOT"
	maxCaptureDimension     = 16384
	maxOpenTimeoutMS        = 60000
)

// Capture source kinds.
const (
	SourceRaw     = "raw"
	SourcePattern = "pattern"
)

// Capture strategies.
const (
	StrategyRows  = "rows"
	StrategyFrame = "frame"
)

// Duplicate eviction scopes.
const (
	ScopeTree = "tree"
	ScopeDay  = "day"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AlbumRoot: defaultAlbumRoot,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Archive: Archive{
			Dir:       defaultArchiveDir,
			TempName:  defaultTempName,
			Extension: defaultArchiveExtension,
		},
		Capture: Capture{
			Source:           defaultCaptureSource,
			Device:           defaultCaptureDevice,
			Width:            defaultCaptureWidth,
			Height:           defaultCaptureHeight,
			OpenTimeoutMS:    defaultOpenTimeoutMS,
			CompressionLevel: defaultCompressionLevel,
			Strategy:         defaultCaptureStrategy,
		},
		Duplicates: Duplicates{
			MarkerPath: defaultMarkerPath,
			Extension:  defaultDuplicateExt,
			Root:       defaultDuplicateRoot,
			Scope:      defaultDuplicateScope,
		},
		Trigger: Trigger{
			UdevSubsystem: defaultUdevSubsystem,
			UdevAction:    defaultUdevAction,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
