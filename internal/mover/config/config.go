// Package config loads and validates xc-ns-mover's YAML configuration:
// tenant identity, API auth, move defaults, report output location, and
// the namespace include/exclude filter.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the root configuration shape, unmarshalled from YAML via
// viper/mapstructure.
type Config struct {
	Tenant     TenantConfig     `mapstructure:"tenant"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Mover      MoverConfig      `mapstructure:"mover"`
	Report     ReportConfig     `mapstructure:"report"`
	Namespaces NamespacesConfig `mapstructure:"namespaces"`
	Log        LogConfig        `mapstructure:"log"`
}

// TenantConfig identifies the XC tenant being operated on.
type TenantConfig struct {
	Name string `mapstructure:"name" validate:"required,xcname"`
}

// AuthConfig carries the bearer token used against the XC config API.
type AuthConfig struct {
	APIToken string `mapstructure:"api_token" validate:"required"`
	APIURL   string `mapstructure:"api_url"`
}

// MoverConfig holds the default move target and naming policy.
type MoverConfig struct {
	TargetNamespace string `mapstructure:"target_namespace" validate:"omitempty,xcname"`
	ConflictPrefix  string `mapstructure:"conflict_prefix"`
}

// ReportConfig controls where HTML move reports are written.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// NamespacesConfig scopes which namespaces the scan subcommand enumerates
// (see ResolveNamespaces). The move command does not read it: discovery and
// the external-reference scan cover the namespaces of the move list.
type NamespacesConfig struct {
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

// LogConfig mirrors pkg/logger.Config so it can be populated straight
// from YAML.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// xcNameRe matches a legal F5 XC object/namespace identifier: lowercase
// alphanumeric, hyphens, dots; 1-64 characters.
var xcNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{0,63}$`)

// validate is a shared validator instance with the xcname tag registered.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("xcname", func(fl validator.FieldLevel) bool {
		return xcNameRe.MatchString(fl.Field().String())
	})
	return v
}

// ValidateXCName reports an error if name is not a legal XC identifier,
// guarding against URL-injection via crafted namespace/resource names in
// CSV input.
func ValidateXCName(name, label string) error {
	if name == "" || !xcNameRe.MatchString(name) {
		return fmt.Errorf("invalid %s %q: must be 1-64 characters, lowercase alphanumeric, hyphens, or dots", label, name)
	}
	return nil
}

var placeholderPrefixes = []string{"your-", "REPLACE_WITH_YOUR_API_TOKEN"}

func isPlaceholder(v string) bool {
	if v == "" {
		return true
	}
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(v, p) || v == p {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mover.conflict_prefix", "mv")
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("namespaces.include", []string{})
	v.SetDefault("namespaces.exclude", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("XCMOVER")

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := checkConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.Auth.APIURL == "" {
		cfg.Auth.APIURL = fmt.Sprintf("https://%s.console.ves.volterra.io", cfg.Tenant.Name)
	}
	return &cfg, nil
}

func checkConfig(cfg *Config) error {
	if isPlaceholder(cfg.Tenant.Name) {
		return fmt.Errorf("missing or placeholder value for tenant.name")
	}
	if isPlaceholder(cfg.Auth.APIToken) {
		return fmt.Errorf("missing or placeholder value for auth.api_token")
	}

	if err := validate.Struct(cfg); err != nil {
		for _, fe := range err.(validator.ValidationErrors) {
			switch fe.Namespace() {
			case "Config.Tenant.Name":
				return ValidateXCName(cfg.Tenant.Name, "tenant.name")
			case "Config.Mover.TargetNamespace":
				return ValidateXCName(cfg.Mover.TargetNamespace, "mover.target_namespace")
			case "Config.Auth.APIToken":
				return fmt.Errorf("missing or placeholder value for auth.api_token")
			}
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	overlap := intersect(cfg.Namespaces.Include, cfg.Namespaces.Exclude)
	if len(overlap) > 0 {
		return fmt.Errorf("namespaces appear in both include and exclude lists (exclude wins, this is likely a mistake): %s", strings.Join(overlap, ", "))
	}
	return nil
}

func intersect(a, b []string) []string {
	bSet := make(map[string]bool, len(b))
	for _, s := range b {
		bSet[s] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, s := range a {
		if bSet[s] && !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

// ResolveNamespaces applies the include/exclude filter to allNamespaces.
//
//   - include only: intersect allNamespaces with include
//   - exclude only: allNamespaces minus exclude
//   - both:         include minus exclude
//   - neither:      allNamespaces unchanged
func ResolveNamespaces(allNamespaces, include, exclude []string) []string {
	var base []string
	if len(include) > 0 {
		for _, ns := range allNamespaces {
			if containsStr(include, ns) {
				base = append(base, ns)
			}
		}
	} else {
		base = append(base, allNamespaces...)
	}

	if len(exclude) > 0 {
		excludeSet := make(map[string]bool, len(exclude))
		for _, ns := range exclude {
			excludeSet[ns] = true
		}
		filtered := base[:0:0]
		for _, ns := range base {
			if !excludeSet[ns] {
				filtered = append(filtered, ns)
			}
		}
		base = filtered
	}

	return base
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
