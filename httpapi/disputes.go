package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"escrowflow/deal"
	"escrowflow/identity"
)

type raiseDisputeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRaiseDispute(c echo.Context) error {
	dealID, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid deal id")
	}
	var req raiseDisputeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID, _ := currentUser(c)
	raised, err := s.disputes.Raise(c.Request().Context(), userID, dealID, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toDisputeResponse(raised))
}

func (s *Server) handleGetDispute(c echo.Context) error {
	dealID, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	found, err := s.disputes.GetByDeal(c.Request().Context(), dealID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDisputeResponse(found))
}

type disputeMessageRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleAddDisputeMessage(c echo.Context) error {
	dealID, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid deal id")
	}
	var req disputeMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID, _ := currentUser(c)
	updated, err := s.disputes.AddMessage(c.Request().Context(), userID, dealID, req.Body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDisputeResponse(updated))
}

func (s *Server) handleListOpenDisputes(c echo.Context) error {
	open, err := s.disputes.ListOpen(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]disputeResponse, 0, len(open))
	for _, d := range open {
		out = append(out, toDisputeResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

type resolveDisputeRequest struct {
	ReleaseTo string `json:"release_to"`
}

// handleResolveDispute settles the dispute on deal :id. Disputes are keyed
// one-to-one by deal, so the path carries the deal id.
func (s *Server) handleResolveDispute(c echo.Context) error {
	dealID, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid deal id")
	}
	var req resolveDisputeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	releaseTo := deal.Role(req.ReleaseTo)
	if !releaseTo.Valid() {
		return badRequest(c, "release_to must be payer or provider")
	}

	userID, role := currentUser(c)
	if role != identity.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access only"})
	}
	resolved, err := s.disputes.Resolve(c.Request().Context(), userID, role, dealID, releaseTo)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDisputeResponse(resolved))
}
