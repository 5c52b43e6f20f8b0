package config

// Version is reported by `walc version` and stamped into bundles' metadata.
const Version = "0.1.0"

// Execution limits
const (
	// DefaultMaxDepth caps the tree-walk evaluator's recursion.
	DefaultMaxDepth = 10000
	// DefaultMaxStack caps the VM operand stack (values, not bytes).
	DefaultMaxStack = 1024 * 1024
)

// Outer-surface defaults
const (
	DefaultFormat     = "json"
	DefaultStorePath  = "walc.db"
	DefaultListenAddr = "127.0.0.1:7427"
	DefaultBackend    = "vm"
	DefaultVerbosity  = 0
)

// EnvPrefix prefixes every environment override, e.g. WALC_MAX_DEPTH.
const EnvPrefix = "WALC_"

// ConfigFileNames are searched in order in the working directory.
var ConfigFileNames = []string{"walc.yaml", "walc.yml", "walc.toml"}

// Bundle file layout
const (
	BundleMagic     = "WALB"
	BundleVersion   = 0x01
	BundleExtension = ".walb"
)

// Backend names
const (
	TreeWalkBackendName     = "treewalk"
	VMBackendName           = "vm"
	DifferentialBackendName = "both"
)
