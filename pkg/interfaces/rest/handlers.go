package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// KitService is the slice of the kitting service the handlers need.
type KitService interface {
	CreateKit(ctx context.Context, workOrderID, stage, actor string) (*entities.Kit, []entities.ShortageRecord, error)
	StartStaging(ctx context.Context, kitID string, required []entities.LocationAttribute, capacity entities.Quantity, actor string) (*entities.Kit, error)
	RecordScan(ctx context.Context, kitID string, part entities.PartNumber, qty entities.Quantity, condition entities.ConditionCode, actor string) (*entities.Kit, error)
	ResolveException(ctx context.Context, kitID string, part entities.PartNumber, actor string) (*entities.Kit, error)
	CompleteStaging(ctx context.Context, kitID, actor string) (*entities.Kit, error)
	Issue(ctx context.Context, kitID, actor string) (*entities.Kit, error)
	MarkConsumed(ctx context.Context, kitID, actor string) (*entities.Kit, error)
	Hold(ctx context.Context, kitID, reason, actor string) (*entities.Kit, error)
	Resume(ctx context.Context, kitID, actor string) (*entities.Kit, error)
	Cancel(ctx context.Context, kitID, actor string) (*entities.Kit, error)
	RefreshShortages(ctx context.Context, kitID string) ([]entities.ShortageRecord, error)
	GetKit(ctx context.Context, kitID string) (*entities.Kit, error)
	ListKitsByWorkOrder(ctx context.Context, workOrderID string) ([]*entities.Kit, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var (
		unknownWO  *entities.UnknownWorkOrderError
		unknownKit *entities.UnknownKitError
		unknownStg *entities.UnknownStageError
		invalidTr  *entities.InvalidTransitionError
		blocking   *entities.BlockingShortageError
		incomplete *entities.IncompleteKitError
		noCapacity *entities.NoCapacityAvailableError
		availError *entities.AvailabilityUnknownError
		cycleError *entities.BOMCycleError
	)

	switch {
	case errors.As(err, &unknownWO), errors.As(err, &unknownKit), errors.As(err, &unknownStg):
		status = http.StatusNotFound
	case errors.As(err, &invalidTr), errors.As(err, &blocking), errors.As(err, &incomplete),
		errors.As(err, &noCapacity), entities.IsRetryableConflict(err):
		status = http.StatusConflict
	case errors.As(err, &cycleError):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &availError):
		status = http.StatusBadGateway
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

type createKitRequest struct {
	WorkOrderID string `json:"work_order_id"`
	Stage       string `json:"stage"`
	Actor       string `json:"actor"`
}

type createKitResponse struct {
	Kit       KitView        `json:"kit"`
	Shortages []ShortageView `json:"shortages"`
}

// CreateKit handles POST /api/v1/kits.
func CreateKit(log *slog.Logger, svc KitService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateKit"

		var req createKitRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "invalid request body"})
			return
		}
		if req.WorkOrderID == "" || req.Stage == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "work_order_id and stage are required"})
			return
		}

		kit, records, err := svc.CreateKit(r.Context(), req.WorkOrderID, req.Stage, req.Actor)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to create kit")
			writeError(w, r, err)
			return
		}

		shortages := make([]ShortageView, 0, len(records))
		for _, rec := range records {
			shortages = append(shortages, shortageToView(rec))
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, createKitResponse{Kit: kitToView(kit), Shortages: shortages})
	}
}

// GetKit handles GET /api/v1/kits/{kitID}.
func GetKit(log *slog.Logger, svc KitService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetKit"

		kit, err := svc.GetKit(r.Context(), chi.URLParam(r, "kitID"))
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to get kit")
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, kitToView(kit))
	}
}

// ListKits handles GET /api/v1/kits.
func ListKits(log *slog.Logger, svc KitService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListKits"

		workOrder := r.URL.Query().Get("work_order")
		if workOrder == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "work_order query parameter is required"})
			return
		}

		kits, err := svc.ListKitsByWorkOrder(r.Context(), workOrder)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to list kits")
			writeError(w, r, err)
			return
		}

		out := make([]KitView, 0, len(kits))
		for _, kit := range kits {
			out = append(out, kitToView(kit))
		}
		render.JSON(w, r, out)
	}
}

type stageKitRequest struct {
	Attributes []string `json:"attributes"`
	Capacity   string   `json:"capacity"`
	Actor      string   `json:"actor"`
}

// StageKit handles POST /api/v1/kits/{kitID}/stage.
func StageKit(log *slog.Logger, svc KitService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.StageKit"

		var req stageKitRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "invalid request body"})
			return
		}

		capacity, err := entities.QtyFromString(req.Capacity)
		if err != nil || !capacity.IsPositive() {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "capacity must be a positive quantity"})
			return
		}

		attrs := make([]entities.LocationAttribute, len(req.Attributes))
		for i, a := range req.Attributes {
			attrs[i] = entities.LocationAttribute(a)
		}

		kit, err := svc.StartStaging(r.Context(), chi.URLParam(r, "kitID"), attrs, capacity, req.Actor)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to start staging")
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, kitToView(kit))
	}
}

type scanRequest struct {
	Part      string `json:"part"`
	Quantity  string `json:"quantity"`
	Condition string `json:"condition"`
	Actor     string `json:"actor"`
}

// ScanItem handles POST /api/v1/kits/{kitID}/scan.
func ScanItem(log *slog.Logger, svc KitService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ScanItem"

		var req scanRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "invalid request body"})
			return
		}

		qty, err := entities.QtyFromString(req.Quantity)
		if err != nil || !qty.IsPositive() {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "quantity must be a positive quantity"})
			return
		}

		condition, ok := parseCondition(req.Condition)
		if !ok {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "condition must be Good, Damaged or Questionable"})
			return
		}

		kit, err := svc.RecordScan(r.Context(), chi.URLParam(r, "kitID"), entities.PartNumber(req.Part), qty, condition, req.Actor)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to record scan")
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, kitToView(kit))
	}
}

type resolveExceptionRequest struct {
	Part  string `json:"part"`
	Actor string `json:"actor"`
}

// ResolveException handles POST /api/v1/kits/{kitID}/resolve-exception.
func ResolveException(log *slog.Logger, svc KitService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ResolveException"

		var req resolveExceptionRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "invalid request body"})
			return
		}

		kit, err := svc.ResolveException(r.Context(), chi.URLParam(r, "kitID"), entities.PartNumber(req.Part), req.Actor)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to resolve exception")
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, kitToView(kit))
	}
}

type actorRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

// transitionHandler builds a handler for the simple lifecycle endpoints.
func transitionHandler(log *slog.Logger, op string, apply func(ctx context.Context, kitID string, req actorRequest) (*entities.Kit, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req actorRequest
		// The body is optional on transition endpoints.
		_ = render.DecodeJSON(r.Body, &req)

		kit, err := apply(r.Context(), chi.URLParam(r, "kitID"), req)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("transition failed")
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, kitToView(kit))
	}
}

// CompleteStaging handles POST /api/v1/kits/{kitID}/complete.
func CompleteStaging(log *slog.Logger, svc KitService) http.HandlerFunc {
	return transitionHandler(log, "handlers.CompleteStaging", func(ctx context.Context, kitID string, req actorRequest) (*entities.Kit, error) {
		return svc.CompleteStaging(ctx, kitID, req.Actor)
	})
}

// IssueKit handles POST /api/v1/kits/{kitID}/issue.
func IssueKit(log *slog.Logger, svc KitService) http.HandlerFunc {
	return transitionHandler(log, "handlers.IssueKit", func(ctx context.Context, kitID string, req actorRequest) (*entities.Kit, error) {
		return svc.Issue(ctx, kitID, req.Actor)
	})
}

// ConsumeKit handles POST /api/v1/kits/{kitID}/consume.
func ConsumeKit(log *slog.Logger, svc KitService) http.HandlerFunc {
	return transitionHandler(log, "handlers.ConsumeKit", func(ctx context.Context, kitID string, req actorRequest) (*entities.Kit, error) {
		return svc.MarkConsumed(ctx, kitID, req.Actor)
	})
}

// HoldKit handles POST /api/v1/kits/{kitID}/hold.
func HoldKit(log *slog.Logger, svc KitService) http.HandlerFunc {
	return transitionHandler(log, "handlers.HoldKit", func(ctx context.Context, kitID string, req actorRequest) (*entities.Kit, error) {
		return svc.Hold(ctx, kitID, req.Reason, req.Actor)
	})
}

// ResumeKit handles POST /api/v1/kits/{kitID}/resume.
func ResumeKit(log *slog.Logger, svc KitService) http.HandlerFunc {
	return transitionHandler(log, "handlers.ResumeKit", func(ctx context.Context, kitID string, req actorRequest) (*entities.Kit, error) {
		return svc.Resume(ctx, kitID, req.Actor)
	})
}

// CancelKit handles POST /api/v1/kits/{kitID}/cancel.
func CancelKit(log *slog.Logger, svc KitService) http.HandlerFunc {
	return transitionHandler(log, "handlers.CancelKit", func(ctx context.Context, kitID string, req actorRequest) (*entities.Kit, error) {
		return svc.Cancel(ctx, kitID, req.Actor)
	})
}

// RefreshShortages handles POST /api/v1/kits/{kitID}/refresh-shortages.
func RefreshShortages(log *slog.Logger, svc KitService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RefreshShortages"

		records, err := svc.RefreshShortages(r.Context(), chi.URLParam(r, "kitID"))
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to refresh shortages")
			writeError(w, r, err)
			return
		}

		shortages := make([]ShortageView, 0, len(records))
		for _, rec := range records {
			shortages = append(shortages, shortageToView(rec))
		}
		render.JSON(w, r, shortages)
	}
}

// QueryShortages handles GET /api/v1/shortages.
func QueryShortages(log *slog.Logger, shortages repositories.ShortageRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.QueryShortages"

		filter := repositories.ShortageFilter{
			WorkOrderID: r.URL.Query().Get("work_order"),
			Part:        entities.PartNumber(r.URL.Query().Get("part")),
		}
		if sev := r.URL.Query().Get("severity"); sev != "" {
			severity, ok := parseSeverity(sev)
			if !ok {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, errorResponse{Error: "severity must be Informational, Major or Blocking"})
				return
			}
			filter.Severity = severity
			filter.HasSeverity = true
		}

		records, err := shortages.Query(r.Context(), filter)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to query shortages")
			writeError(w, r, err)
			return
		}

		out := make([]ShortageView, 0, len(records))
		for _, rec := range records {
			out = append(out, shortageToView(rec))
		}
		render.JSON(w, r, out)
	}
}

// ListLocations handles GET /api/v1/locations.
func ListLocations(log *slog.Logger, locations repositories.LocationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListLocations"

		locs, err := locations.ListLocations(r.Context())
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to list locations")
			writeError(w, r, err)
			return
		}

		out := make([]LocationView, 0, len(locs))
		for _, loc := range locs {
			out = append(out, locationToView(loc))
		}
		render.JSON(w, r, out)
	}
}

func parseCondition(s string) (entities.ConditionCode, bool) {
	switch s {
	case "Good":
		return entities.ConditionGood, true
	case "Damaged":
		return entities.ConditionDamaged, true
	case "Questionable":
		return entities.ConditionQuestionable, true
	default:
		return entities.ConditionUnscanned, false
	}
}

func parseSeverity(s string) (entities.ShortageSeverity, bool) {
	switch s {
	case "Informational":
		return entities.SeverityInformational, true
	case "Major":
		return entities.SeverityMajor, true
	case "Blocking":
		return entities.SeverityBlocking, true
	default:
		return entities.SeverityInformational, false
	}
}
