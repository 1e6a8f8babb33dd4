package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openlegis/openlegis-backend/internal/data/repos"
	"github.com/openlegis/openlegis-backend/internal/http/response"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type BillHandler struct {
	bills      repos.BillRepo
	sponsors   repos.SponsorRepo
	amendments repos.AmendmentRepo
	log        *logger.Logger
}

func NewBillHandler(
	bills repos.BillRepo,
	sponsors repos.SponsorRepo,
	amendments repos.AmendmentRepo,
	baseLog *logger.Logger,
) *BillHandler {
	return &BillHandler{
		bills:      bills,
		sponsors:   sponsors,
		amendments: amendments,
		log:        baseLog.With("handler", "BillHandler"),
	}
}

// GetBill returns one bill with its actions, sponsors and amendments.
// The natural key is (source, session, base print number).
func (h *BillHandler) GetBill(c *gin.Context) {
	src := c.Param("source")
	base := c.Param("base")
	session, err := strconv.Atoi(c.Param("session"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session", err)
		return
	}

	dbc := dbctx.New(c.Request.Context())
	bill, err := h.bills.GetByNaturalKey(dbc, base, session, src)
	if err != nil {
		h.log.Error("get bill failed", "base_print_no", base, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if bill == nil {
		response.RespondError(c, http.StatusNotFound, "bill_not_found", nil)
		return
	}

	actions, err := h.bills.GetActions(dbc, bill.ID)
	if err != nil {
		h.log.Error("get bill actions failed", "bill_id", bill.ID.String(), "error", err)
		response.RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	sponsors, err := h.sponsors.ListForBill(dbc, bill.ID)
	if err != nil {
		h.log.Error("get bill sponsors failed", "bill_id", bill.ID.String(), "error", err)
		response.RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	amendments, err := h.amendments.ListForBill(dbc, bill.ID)
	if err != nil {
		h.log.Error("get bill amendments failed", "bill_id", bill.ID.String(), "error", err)
		response.RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}

	response.RespondOK(c, gin.H{
		"bill":       bill,
		"actions":    actions,
		"sponsors":   sponsors,
		"amendments": amendments,
	})
}
