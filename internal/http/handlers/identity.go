package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/http/response"
	"github.com/yungbote/identity-backend/internal/services"
)

type IdentityHandler struct {
	identity services.IdentityService
}

func NewIdentityHandler(identity services.IdentityService) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

type identifyBody struct {
	Email       json.RawMessage `json:"email"`
	PhoneNumber json.RawMessage `json:"phoneNumber"`
}

// POST /identify
func (h *IdentityHandler) Identify(c *gin.Context) {
	const op = "IdentityHandler.Identify"
	var body identifyBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.RespondAggregateError(c, domainagg.NewError(domainagg.CodeValidation, op, "request body must be a JSON object", err))
		return
	}
	email, err := decodeField(body.Email, false)
	if err != nil {
		response.RespondAggregateError(c, domainagg.NewError(domainagg.CodeValidation, op, "email must be a string", err))
		return
	}
	phone, err := decodeField(body.PhoneNumber, true)
	if err != nil {
		response.RespondAggregateError(c, domainagg.NewError(domainagg.CodeValidation, op, "phoneNumber must be a string or number", err))
		return
	}

	out, err := h.identity.Identify(c.Request.Context(), services.IdentifyRequest{Email: email, PhoneNumber: phone})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"contact": out.Summary})
}

// GET /contacts/:id
func (h *IdentityHandler) GetContact(c *gin.Context) {
	id, ok := contactID(c, "IdentityHandler.GetContact")
	if !ok {
		return
	}
	summary, err := h.identity.GetIdentity(c.Request.Context(), id)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"contact": summary})
}

// GET /contacts/:id/events
func (h *IdentityHandler) ListContactEvents(c *gin.Context) {
	id, ok := contactID(c, "IdentityHandler.ListContactEvents")
	if !ok {
		return
	}
	events, err := h.identity.ListLinkEvents(c.Request.Context(), id)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

func contactID(c *gin.Context, op string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondAggregateError(c, domainagg.NewError(domainagg.CodeValidation, op, "contact id must be a positive integer", err))
		return 0, false
	}
	return id, true
}

// decodeField reads an optional JSON string. Numbers are accepted when
// allowNumber is set and kept in their literal decimal form.
func decodeField(raw json.RawMessage, allowNumber bool) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}
	if !allowNumber {
		return nil, fmt.Errorf("unexpected JSON value %s", raw)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	n, ok := v.(json.Number)
	if !ok {
		return nil, fmt.Errorf("unexpected JSON value %s", raw)
	}
	s := n.String()
	return &s, nil
}
