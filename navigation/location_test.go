package navigation_test

import (
	"testing"

	"github.com/jrsteele09/go-dashboard-auth/navigation"
	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	loc, err := navigation.NewLocation("https://dash.example.com/auth/reset-password#access_token=A&refresh_token=B&type=recovery")
	require.NoError(t, err)
	require.Equal(t, "access_token=A&refresh_token=B&type=recovery", loc.Fragment())

	loc.ClearFragment()
	require.Empty(t, loc.Fragment())
	require.Equal(t, "https://dash.example.com/auth/reset-password", loc.URL())
	require.Empty(t, loc.History())

	loc.Push(navigation.RouteLogin)
	require.Equal(t, navigation.RouteLogin, loc.Path())
	require.Equal(t, "https://dash.example.com/auth/login", loc.URL())

	loc.Push(navigation.RouteDashboard)
	require.Equal(t, []string{navigation.RouteLogin, navigation.RouteDashboard}, loc.History())
}
