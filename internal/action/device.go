package action

import (
	"context"
	"fmt"
)

func (s *Simulator) CheckAppInstalled(ctx context.Context, params map[string]any) (map[string]any, error) {
	appName := stringParam(params, "app_name")
	if err := s.wait(ctx, 1); err != nil {
		return nil, err
	}
	_, installed := s.installedApps[appName]
	return map[string]any{
		"installed": installed,
		"app_name":  appName,
	}, nil
}

func (s *Simulator) LaunchApp(ctx context.Context, params map[string]any) (map[string]any, error) {
	appName := stringParam(params, "app_name")
	if _, installed := s.installedApps[appName]; !installed {
		return nil, fmt.Errorf("app %q is not installed", appName)
	}
	if err := s.wait(ctx, 2); err != nil {
		return nil, err
	}
	return map[string]any{
		"launched": true,
		"app_name": appName,
	}, nil
}
