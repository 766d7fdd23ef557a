package httpserver

import (
	"net/http"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerBillingRoutes(g *echo.Group) {
	g.GET("/billing/subscription", s.handleGetSubscription)
	g.POST("/billing/checkout", s.handleCheckout)
	g.POST("/billing/portal", s.handlePortal)
}

type checkoutRequest struct {
	Tier string `json:"tier" validate:"required,oneof=premium king"`
}

func (s *Server) handleCheckout(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	url, err := s.billing.Checkout(c.Request().Context(), id, domain.Tier(req.Tier))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handlePortal(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	url, err := s.billing.Portal(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleGetSubscription(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	sub, err := s.billing.Subscription(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, subscriptionResponse{
		Tier:             sub.Tier,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		PaymentFailedAt:  sub.PaymentFailedAt,
		CanceledAt:       sub.CanceledAt,
	})
}
