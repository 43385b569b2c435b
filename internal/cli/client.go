package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/edgewall-hq/go-sonicos/internal/config"
	"github.com/edgewall-hq/go-sonicos/pkg/sonicos"
	"github.com/edgewall-hq/go-sonicos/pkg/targets"
)

// resolveClientConfig builds the firewall connection parameters from the
// --target flag or, absent that, from the environment-backed configuration.
func resolveClientConfig() (sonicos.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return sonicos.Config{}, fmt.Errorf("load configuration: %w", err)
	}

	if targetID != "" {
		reg, err := targets.LoadRegistry(cfg.TargetsFile)
		if err != nil {
			return sonicos.Config{}, err
		}
		t, ok := reg.ByID(targetID)
		if !ok {
			return sonicos.Config{}, fmt.Errorf("target %q not found in %s", targetID, cfg.TargetsFile)
		}
		return t.ClientConfig()
	}

	if cfg.FirewallHost == "" {
		return sonicos.Config{}, fmt.Errorf("no firewall configured: set FIREWALL_HOST or pass --target")
	}
	return sonicos.Config{
		Host:               cfg.FirewallHost,
		Port:               cfg.FirewallPort,
		Username:           cfg.APIUsername,
		Password:           cfg.APIPassword,
		InsecureSkipVerify: cfg.TLSInsecureSkipVerify,
		Timeout:            cfg.RequestTimeout,
	}, nil
}

// withSession logs in to the resolved firewall, runs fn, and releases the
// session afterwards. Logout runs on a fresh context so an interrupted
// command still frees the session on the appliance.
func withSession(ctx context.Context, fn func(ctx context.Context, client *sonicos.Client) error) error {
	clientCfg, err := resolveClientConfig()
	if err != nil {
		return err
	}
	client := sonicos.New(clientCfg)
	defer client.Close()

	res, err := client.Login(ctx)
	if err != nil {
		return fmt.Errorf("login to %s: %w", client.BaseURL(), err)
	}
	if !res.Success {
		return fmt.Errorf("login to %s refused: %s", client.BaseURL(), res.Message)
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = client.Logout(logoutCtx)
	}()

	return fn(ctx, client)
}
