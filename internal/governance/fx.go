package governance

import (
	"github.com/smallbiznis/panelquote/internal/governance/repository"
	"github.com/smallbiznis/panelquote/internal/governance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("governance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
