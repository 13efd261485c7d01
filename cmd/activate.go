package cmd

import (
	"errors"
	"fmt"

	"mcpswap/internal/engine"
	"mcpswap/internal/logger"
	"mcpswap/internal/paths"
	"mcpswap/internal/process"
	"mcpswap/internal/secrets"
	"mcpswap/internal/store"
)

// newController is injectable for testing.
var newController = func() process.Controller {
	return &process.DarwinController{}
}

func (c *appContext) newEngine() (*engine.Engine, error) {
	dotenv, err := secrets.LoadDotenv(paths.DotenvPath(c.Root))
	if err != nil {
		return nil, err
	}
	return &engine.Engine{
		Store:      c.Store,
		Proc:       newController(),
		TargetPath: c.Settings.TargetConfig,
		AppName:    c.Settings.AppName,
		Env:        secrets.EnvSnapshot(),
		Dotenv:     dotenv,
	}, nil
}

func runActivate(name string) error {
	ctx, err := newAppContext()
	if err != nil {
		return err
	}
	eng, err := ctx.newEngine()
	if err != nil {
		return err
	}

	res, err := eng.Activate(name)
	if err != nil {
		logger.Errorf("activation of %q failed: %v", name, err)
		var missing *engine.MissingServerError
		switch {
		case errors.As(err, &missing):
			if names, lerr := ctx.Store.ListServers(); lerr == nil {
				printAvailable("server", names)
			}
		case errors.Is(err, store.ErrNotFound):
			if names, lerr := ctx.Store.ListProfiles(); lerr == nil {
				printAvailable("profile", names)
			}
		}
		return err
	}

	switch res.Outcome {
	case engine.OutcomeAlreadyActive:
		fmt.Printf("Profile %q is already active, nothing to do\n", res.Profile)
	case engine.OutcomeRefreshed:
		fmt.Printf("Profile %q rewritten (content unchanged), restarting %s\n", res.Profile, ctx.Settings.AppName)
	default:
		fmt.Printf("Activated profile %q, restarting %s\n", res.Profile, ctx.Settings.AppName)
	}
	if n := len(res.Warnings); n > 0 {
		fmt.Printf("Completed with %d warning(s), see log output above\n", n)
	}
	return nil
}
