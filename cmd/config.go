package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

// envKeyReplacer maps nested keys to env names: server.port -> HOSTEL_SERVER_PORT.
var envKeyReplacer = strings.NewReplacer(".", "_")

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hostel"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage hostel configuration.

Running bare 'hostel config' is the same as 'hostel config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# hostel configuration
# See: hostel config show (for effective values and sources)

# State/data directory (default: ~/.config/hostel)
# state_dir: {{ .StateDir }}

# Roster and seed complaints; empty uses the built-in seed
seed_file: "{{ .SeedFile }}"

log:
  # debug, info, warn or error
  level: "{{ .LogLevel }}"
  # text or json
  format: "{{ .LogFormat }}"

store:
  # memory (lost on exit) or sqlite
  backend: "{{ .StoreBackend }}"
  # SQLite database file; ":memory:" keeps it in memory
  dsn: "{{ .StoreDSN }}"

lifecycle:
  # Only allow forward status transitions (default: false)
  strict: {{ .LifecycleStrict }}

identity:
  # Simulated login and submit latency, e.g. "1s"
  latency: "{{ .IdentityLatency }}"

server:
  port: {{ .ServerPort }}
  # HMAC secret for API tokens; empty generates one per run
  jwt_secret: ""
  # Browser origins allowed to call the API
  cors_origins: []

notify:
  # Redis address for fanning events out across instances; empty disables
  redis_addr: "{{ .RedisAddr }}"
  redis_channel: "{{ .RedisChannel }}"

anthropic:
  # Falls back to $ANTHROPIC_API_KEY
  api_key: ""
  model: "{{ .AnthropicModel }}"

mcp:
  # Identity the MCP server acts as
  email: "{{ .MCPEmail }}"
  role: "{{ .MCPRole }}"
`

type configTemplateData struct {
	StateDir        string
	SeedFile        string
	LogLevel        string
	LogFormat       string
	StoreBackend    string
	StoreDSN        string
	LifecycleStrict bool
	IdentityLatency string
	ServerPort      int
	RedisAddr       string
	RedisChannel    string
	AnthropicModel  string
	MCPEmail        string
	MCPRole         string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:        viper.GetString("state_dir"),
		SeedFile:        viper.GetString("seed_file"),
		LogLevel:        viper.GetString("log.level"),
		LogFormat:       viper.GetString("log.format"),
		StoreBackend:    viper.GetString("store.backend"),
		StoreDSN:        viper.GetString("store.dsn"),
		LifecycleStrict: viper.GetBool("lifecycle.strict"),
		IdentityLatency: viper.GetString("identity.latency"),
		ServerPort:      viper.GetInt("server.port"),
		RedisAddr:       viper.GetString("notify.redis_addr"),
		RedisChannel:    viper.GetString("notify.redis_channel"),
		AnthropicModel:  viper.GetString("anthropic.model"),
		MCPEmail:        viper.GetString("mcp.email"),
		MCPRole:         viper.GetString("mcp.role"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "HOSTEL_STATE_DIR"},
	{Key: "seed_file", EnvVar: "HOSTEL_SEED_FILE"},
	{Key: "log.level", EnvVar: "HOSTEL_LOG_LEVEL"},
	{Key: "log.format", EnvVar: "HOSTEL_LOG_FORMAT"},
	{Key: "store.backend", EnvVar: "HOSTEL_STORE_BACKEND"},
	{Key: "store.dsn", EnvVar: "HOSTEL_STORE_DSN"},
	{Key: "lifecycle.strict", EnvVar: "HOSTEL_LIFECYCLE_STRICT"},
	{Key: "identity.latency", EnvVar: "HOSTEL_IDENTITY_LATENCY"},
	{Key: "server.port", EnvVar: "HOSTEL_SERVER_PORT"},
	{Key: "server.jwt_secret", EnvVar: "HOSTEL_SERVER_JWT_SECRET", Secret: true},
	{Key: "server.cors_origins", EnvVar: "HOSTEL_SERVER_CORS_ORIGINS"},
	{Key: "notify.redis_addr", EnvVar: "HOSTEL_NOTIFY_REDIS_ADDR"},
	{Key: "notify.redis_channel", EnvVar: "HOSTEL_NOTIFY_REDIS_CHANNEL"},
	{Key: "anthropic.api_key", EnvVar: "HOSTEL_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "HOSTEL_ANTHROPIC_MODEL"},
	{Key: "mcp.email", EnvVar: "HOSTEL_MCP_EMAIL"},
	{Key: "mcp.role", EnvVar: "HOSTEL_MCP_ROLE"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// maskSecret keeps the last four characters of a secret.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set, set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'hostel config init' first)", cfgPath)
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
