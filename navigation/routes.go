package navigation

const (
	RouteHome           = "/"
	RouteDashboard      = "/dashboard"
	RouteLogin          = "/auth/login"
	RouteRegister       = "/auth/register"
	RouteForgotPassword = "/auth/forgot-password"
	RouteResetPassword  = "/auth/reset-password"
)
