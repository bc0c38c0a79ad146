package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-reads the config file of v whenever it is written and passes the
// validated result to onChange. An edit that fails validation goes to
// onError and the previous configuration stays in effect.
//
// Only settings that are safe to change at runtime should be applied by
// onChange; listeners and pools are fixed at startup.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := FromViper(v)
		if err != nil {
			onError(fmt.Errorf("reloading %s: %w", e.Name, err))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
