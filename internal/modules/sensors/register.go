package sensors

import (
	"net/http"

	"smartcity-dashboard/internal/modules/sensors/chart"
	"smartcity-dashboard/internal/modules/sensors/controller"
	"smartcity-dashboard/internal/modules/sensors/live"
	"smartcity-dashboard/internal/modules/sensors/repository"
	"smartcity-dashboard/internal/modules/sensors/service"
)

type Deps struct {
	Repository repository.PreferenceRepository
	Dashboard  *service.Dashboard
	Hub        *live.Hub
}

func RegisterFeature(mux *http.ServeMux, deps Deps) {
	sensorsController := controller.NewSensorsController(deps.Dashboard, deps.Repository, chart.NewRenderer(), deps.Hub)
	sensorsController.RegisterRoutes(mux)
}
