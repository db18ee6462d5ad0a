package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"escrowflow/deal"
	"escrowflow/identity"
)

type createDealRequest struct {
	ServiceDescription string    `json:"service_description"`
	Amount             int64     `json:"amount"`
	Deadline           time.Time `json:"deadline"`
	CreatorRole        string    `json:"creator_role"`
	InviteType         string    `json:"invite_type"`
	InvitedUsername    string    `json:"invited_username"`
}

func (s *Server) handleCreateDeal(c echo.Context) error {
	var req createDealRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID, _ := currentUser(c)
	created, err := s.deals.Create(c.Request().Context(), userID, deal.CreateParams{
		ServiceDescription: req.ServiceDescription,
		Amount:             req.Amount,
		Deadline:           req.Deadline,
		CreatorRole:        deal.Role(req.CreatorRole),
		InviteType:         deal.InviteType(req.InviteType),
		InvitedUsername:    req.InvitedUsername,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toDealResponse(created))
}

type joinDealRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleJoinByCode(c echo.Context) error {
	var req joinDealRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID, _ := currentUser(c)
	joined, err := s.deals.JoinByCode(c.Request().Context(), userID, req.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDealResponse(joined))
}

func (s *Server) handleAcceptInvitation(c echo.Context) error {
	dealID, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	userID, _ := currentUser(c)
	accepted, err := s.deals.AcceptInvitation(c.Request().Context(), userID, dealID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDealResponse(accepted))
}

func (s *Server) handleFund(c echo.Context) error {
	return s.transition(c, s.deals.Fund)
}

func (s *Server) handleMarkComplete(c echo.Context) error {
	return s.transition(c, s.deals.MarkComplete)
}

func (s *Server) handleConfirmAndRelease(c echo.Context) error {
	return s.transition(c, s.deals.ConfirmAndRelease)
}

func (s *Server) handleCancel(c echo.Context) error {
	return s.transition(c, s.deals.Cancel)
}

// transition handles the common shape of actor-guarded state changes.
func (s *Server) transition(c echo.Context, op func(ctx context.Context, userID, dealID int64) (deal.Deal, error)) error {
	dealID, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	userID, _ := currentUser(c)
	changed, err := op(c.Request().Context(), userID, dealID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDealResponse(changed))
}

func (s *Server) handleGetDeal(c echo.Context) error {
	dealID, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	found, err := s.deals.Get(c.Request().Context(), dealID)
	if err != nil {
		return writeError(c, err)
	}

	userID, role := currentUser(c)
	if role != identity.RoleAdmin && !found.IsParticipant(userID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant"})
	}
	return c.JSON(http.StatusOK, toDealResponse(found))
}

func (s *Server) handleListDeals(c echo.Context) error {
	userID, _ := currentUser(c)
	deals, err := s.deals.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDealResponses(deals))
}

func (s *Server) handleListTransactions(c echo.Context) error {
	dealID, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	found, err := s.deals.Get(c.Request().Context(), dealID)
	if err != nil {
		return writeError(c, err)
	}
	userID, role := currentUser(c)
	if role != identity.RoleAdmin && !found.IsParticipant(userID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant"})
	}

	recs, err := s.txs.ListForDeal(c.Request().Context(), dealID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTransactionResponses(recs))
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
