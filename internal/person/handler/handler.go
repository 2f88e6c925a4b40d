package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"person-registry/internal/person/models"
	"person-registry/internal/platform/middleware"
	dErrors "person-registry/pkg/domain-errors"
	"person-registry/pkg/platform/httputil"
	"person-registry/pkg/platform/validation"
	"person-registry/pkg/requestcontext"
)

// HeaderTotalCount carries the number of persons matching a list query.
const HeaderTotalCount = "X-Total-Count"

const msgPersonNotFound = "Person not found"

// Service defines the person operations the handler depends on.
type Service interface {
	CreatePerson(ctx context.Context, p *models.Person) (*models.Person, error)
	GetPersons(ctx context.Context, filter models.Filter, offset, limit int) (*models.Page, error)
	GetPersonByUniqueAttribute(ctx context.Context, attr models.Attribute, value string) (*models.Person, error)
	UpdatePersons(ctx context.Context, attr models.Attribute, value string, patch models.Patch) (int64, error)
	DeletePersons(ctx context.Context, attr models.Attribute, value string) (int64, error)
}

// Handler serves the /person endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a person handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the person routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/person", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Put("/", h.HandleUpdateByBody)
		r.Delete("/", h.HandleDeleteByQuery)
		r.Get("/{attribute}/{value}", h.HandleGet)
		r.Put("/{attribute}/{value}", h.HandleUpdate)
		r.Delete("/{attribute}/{value}", h.HandleDelete)
	})
}

// UpdateResponse is returned by the update endpoints.
type UpdateResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// DeleteResponse is returned by the delete endpoints.
type DeleteResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// HandleCreate handles POST /person.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreatePersonRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.CreatePerson(ctx, req.ToModel())
	if err != nil {
		h.writeServiceError(ctx, w, "create person", err)
		return
	}

	h.logger.InfoContext(ctx, "person created",
		"request_id", requestID,
		"person_id", p.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// HandleList handles GET /person.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.GetPersons(ctx, q.Filter, q.Offset(), q.Limit)
	if err != nil {
		h.writeServiceError(ctx, w, "list persons", err)
		return
	}

	w.Header().Set(HeaderTotalCount, strconv.Itoa(page.Total))
	httputil.WriteJSON(w, http.StatusOK, page.Persons)
}

// HandleGet handles GET /person/{attribute}/{value}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, err := pathAddress(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.service.GetPersonByUniqueAttribute(ctx, addr.attribute, addr.value)
	if err != nil {
		h.writeServiceError(ctx, w, "get person", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PUT /person/{attribute}/{value}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	addr, err := pathAddress(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdatePersonRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.update(ctx, w, addr, req.ToPatch())
}

// HandleUpdateByBody handles PUT /person, where the body names the records
// to update.
func (h *Handler) HandleUpdateByBody(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddressedUpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.update(ctx, w, req.address, req.ToPatch())
}

func (h *Handler) update(ctx context.Context, w http.ResponseWriter, addr address, patch models.Patch) {
	n, err := h.service.UpdatePersons(ctx, addr.attribute, addr.value, patch)
	if err != nil {
		h.writeServiceError(ctx, w, "update persons", err)
		return
	}
	if n == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, msgPersonNotFound))
		return
	}

	h.logger.InfoContext(ctx, "persons updated",
		"request_id", requestcontext.RequestID(ctx),
		"attribute", addr.attribute.String(),
		"updated", n,
	)
	httputil.WriteJSON(w, http.StatusOK, UpdateResponse{
		Message: fmt.Sprintf("Person with %s = %s was updated successfully.", addr.attribute, addr.value),
		Updated: n,
	})
}

// HandleDelete handles DELETE /person/{attribute}/{value}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.delete(r.Context(), w, addr)
}

// HandleDeleteByQuery handles DELETE /person?attribute=&value=.
func (h *Handler) HandleDeleteByQuery(w http.ResponseWriter, r *http.Request) {
	var errs validation.Errors
	q := r.URL.Query()
	addr := parseAddress(&errs, q.Get("attribute"), q.Get("value"))
	if err := errs.Err(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.delete(r.Context(), w, addr)
}

func (h *Handler) delete(ctx context.Context, w http.ResponseWriter, addr address) {
	n, err := h.service.DeletePersons(ctx, addr.attribute, addr.value)
	if err != nil {
		h.writeServiceError(ctx, w, "delete persons", err)
		return
	}
	if n == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, msgPersonNotFound))
		return
	}

	h.logger.InfoContext(ctx, "persons deleted",
		"request_id", requestcontext.RequestID(ctx),
		"attribute", addr.attribute.String(),
		"deleted", n,
	)
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{
		Message: fmt.Sprintf("Person with %s = %s was deleted successfully.", addr.attribute, addr.value),
		Deleted: n,
	})
}

// writeServiceError logs internal failures with their cause and writes the
// error response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if !dErrors.HasCode(err, dErrors.CodeValidation) &&
		!dErrors.HasCode(err, dErrors.CodeNotFound) &&
		!dErrors.HasCode(err, dErrors.CodeConflict) {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

// pathAddress reads and validates the {attribute}/{value} path parameters.
func pathAddress(r *http.Request) (address, error) {
	var errs validation.Errors
	addr := parseAddress(&errs, pathParam(r, "attribute"), pathParam(r, "value"))
	if err := errs.Err(); err != nil {
		return address{}, err
	}
	return addr, nil
}

// pathParam returns the decoded path parameter. chi routes on RawPath when
// it is set, so only then does the value still need unescaping.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
