package config

import (
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// secretKeys are masked when settings are printed
var secretKeys = []string{
	"database.url",
	"redis.url",
	"redis.password",
	"auth.jwt_secret",
	"storage.s3_access_key",
	"storage.s3_secret_key",
}

// Dump renders the effective settings of v, defaults and environment
// overrides included, as YAML with credentials masked. The output is a valid
// config file.
func Dump(v *viper.Viper) ([]byte, error) {
	settings := v.AllSettings()
	for _, key := range secretKeys {
		section, name, _ := strings.Cut(key, ".")
		values, ok := settings[section].(map[string]interface{})
		if !ok {
			continue
		}
		if s, ok := values[name].(string); ok && s != "" {
			values[name] = redacted
		}
	}
	return yaml.Marshal(settings)
}
