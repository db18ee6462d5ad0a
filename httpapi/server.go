// Package httpapi exposes the escrow platform over HTTP. Handlers stay
// thin: they bind input, call a domain service and map the error to a
// status. All business rules live in the domain packages.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"escrowflow/deal"
	"escrowflow/dispute"
	"escrowflow/identity"
	"escrowflow/notify"
	"escrowflow/obs"
	"escrowflow/txlog"
)

// Server wires the domain services into an echo router.
type Server struct {
	users    *identity.Service
	deals    *deal.Service
	disputes *dispute.Service
	txs      txlog.Log
	notices  notify.Sink
}

func NewServer(users *identity.Service, deals *deal.Service, disputes *dispute.Service, txs txlog.Log, notices notify.Sink) *Server {
	return &Server{
		users:    users,
		deals:    deals,
		disputes: disputes,
		txs:      txs,
		notices:  notices,
	}
}

// Router builds the route table. Exposed separately from Handler so tests
// can drive echo directly.
func (s *Server) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(RequestID)
	e.Use(RequestLogger)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(obs.Handler()))

	e.POST("/auth/register", s.handleRegister)
	e.POST("/auth/login", s.handleLogin)

	api := e.Group("", s.Authenticate)

	api.GET("/auth/me", s.handleMe)

	api.POST("/deals", s.handleCreateDeal)
	api.POST("/deals/join", s.handleJoinByCode)
	api.GET("/deals", s.handleListDeals)
	api.GET("/deals/:id", s.handleGetDeal)
	api.POST("/deals/:id/accept", s.handleAcceptInvitation)
	api.POST("/deals/:id/fund", s.handleFund)
	api.POST("/deals/:id/complete", s.handleMarkComplete)
	api.POST("/deals/:id/confirm", s.handleConfirmAndRelease)
	api.POST("/deals/:id/cancel", s.handleCancel)
	api.GET("/deals/:id/transactions", s.handleListTransactions)

	api.POST("/deals/:id/dispute", s.handleRaiseDispute)
	api.GET("/deals/:id/dispute", s.handleGetDispute)
	api.POST("/deals/:id/dispute/messages", s.handleAddDisputeMessage)

	api.GET("/notifications", s.handleListNotifications)
	api.POST("/notifications/:id/read", s.handleMarkNotificationRead)

	admin := e.Group("/admin", s.Authenticate, RequireAdmin)
	admin.GET("/disputes", s.handleListOpenDisputes)
	admin.POST("/disputes/:id/resolve", s.handleResolveDispute)

	return e
}

// Handler returns the router wrapped with prometheus instrumentation.
func (s *Server) Handler() http.Handler {
	return obs.Instrument(s.Router())
}
