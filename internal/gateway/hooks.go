// internal/gateway/hooks.go
package gateway

import (
	"github.com/dalemusser/sorpasso/app"
	"github.com/dalemusser/sorpasso/config"
	"go.uber.org/zap"
)

// LoadConfig loads the core config and the validated Settings from args,
// the environment and the config files in dir.
func LoadConfig(logger *zap.Logger, dir string, args []string) (*config.CoreConfig, Settings, error) {
	core, values, err := config.Load(logger, config.Options{Args: args, Dir: dir, AppKeys: AppKeys})
	if err != nil {
		return nil, Settings{}, err
	}
	s, err := LoadSettings(values)
	if err != nil {
		return nil, Settings{}, err
	}
	return core, s, nil
}

// Hooks wires the gateway into the app lifecycle.
func Hooks(args []string) app.Hooks[Settings, *Backends] {
	return app.Hooks[Settings, *Backends]{
		Name: ServiceName,
		LoadConfig: func(logger *zap.Logger) (*config.CoreConfig, Settings, error) {
			return LoadConfig(logger, ".", args)
		},
		Connect:      ConnectFromConfig,
		BuildHandler: BuildHandler,
		Close:        (*Backends).Close,
	}
}
