package quotation

import (
	"github.com/smallbiznis/panelquote/internal/quotation/repository"
	"github.com/smallbiznis/panelquote/internal/quotation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quotation.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.NewHistory),
	fx.Provide(service.NewService),
)
