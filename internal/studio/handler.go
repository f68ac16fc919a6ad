package studio

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"sonoreport/internal/docstore"
	"sonoreport/internal/platform/httputil"
	"sonoreport/internal/practice"
	"sonoreport/internal/records"
	"sonoreport/internal/schema"
)

// Handler serves the loopback API. The UI shell is the only client; the
// listener must stay bound to localhost.
type Handler struct {
	app *App

	mu   sync.RWMutex
	pctx practice.Context
}

// NewHandler wraps the booted app.
func NewHandler(app *App) *Handler {
	return &Handler{app: app, pctx: app.Context}
}

// Register mounts every loopback endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/practice", h.handleGetPractice)
	r.Post("/v1/practice/switch", h.handleSwitchPractice)

	r.Get("/v1/settings", h.handleGetSettings)
	r.Patch("/v1/settings", h.handleUpdateSettings)

	r.Post("/v1/patients", h.handleCreatePatient)
	r.Get("/v1/patients", h.handleListPatients)
	r.Get("/v1/patients/{id}", h.handleGetPatient)
	r.Patch("/v1/patients/{id}", h.handleUpdatePatient)
	r.Delete("/v1/patients/{id}", h.handleDeletePatient)

	r.Post("/v1/exams", h.handleCreateExam)
	r.Get("/v1/exams", h.handleListExams)
	r.Get("/v1/exams/{id}", h.handleGetExam)
	r.Patch("/v1/exams/{id}", h.handleUpdateExam)
	r.Post("/v1/exams/{id}/finalize", h.handleFinalizeExam)
	r.Delete("/v1/exams/{id}", h.handleDeleteExam)
	r.Post("/v1/exams/{id}/images", h.handleAttachImage)
	r.Delete("/v1/exams/{id}/images/{imageID}", h.handleRemoveImage)

	r.Post("/v1/profiles", h.handleCreateProfile)
	r.Get("/v1/profiles", h.handleListProfiles)
	r.Patch("/v1/profiles/{id}", h.handleUpdateProfile)
	r.Post("/v1/profiles/{id}/activate", h.handleActivateProfile)
	r.Delete("/v1/profiles/{id}", h.handleDeleteProfile)

	r.Post("/v1/templates", h.handleCreateTemplate)
	r.Get("/v1/templates", h.handleListTemplates)
	r.Patch("/v1/templates/{id}", h.handleUpdateTemplate)
	r.Delete("/v1/templates/{id}", h.handleDeleteTemplate)

	r.Post("/v1/reference-values", h.handleCreateReferenceValue)
	r.Get("/v1/reference-values", h.handleListReferenceValues)
	r.Patch("/v1/reference-values/{id}", h.handleUpdateReferenceValue)
	r.Delete("/v1/reference-values/{id}", h.handleDeleteReferenceValue)

	r.Post("/v1/drugs", h.handleCreateDrug)
	r.Get("/v1/drugs", h.handleListDrugs)
	r.Delete("/v1/drugs/{id}", h.handleDeleteDrug)

	r.Post("/v1/prescriptions", h.handleCreatePrescription)
	r.Get("/v1/prescriptions", h.handleListPrescriptions)
	r.Delete("/v1/prescriptions/{id}", h.handleDeletePrescription)

	r.Post("/v1/transactions", h.handleAddTransaction)
	r.Get("/v1/transactions", h.handleListTransactions)
	r.Patch("/v1/transactions/{id}", h.handleUpdateTransaction)
	r.Delete("/v1/transactions/{id}", h.handleDeleteTransaction)
	r.Get("/v1/balance", h.handleGetBalance)

	r.Post("/v1/lab-exams", h.handleCreateLabExam)
	r.Get("/v1/lab-exams", h.handleListLabExams)
	r.Delete("/v1/lab-exams/{id}", h.handleDeleteLabExam)

	r.Post("/v1/ophthalmo-exams", h.handleCreateOphthalmoExam)
	r.Get("/v1/ophthalmo-exams", h.handleListOphthalmoExams)
	r.Get("/v1/ophthalmo-exams/{id}", h.handleGetOphthalmoExam)
	r.Patch("/v1/ophthalmo-exams/{id}", h.handleUpdateOphthalmoExam)
}

func (h *Handler) current() practice.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pctx
}

type practiceResponse struct {
	Practice string   `json:"practice"`
	Modules  []string `json:"modules"`
	DeviceID string   `json:"device_id"`
}

func (h *Handler) handleGetPractice(w http.ResponseWriter, r *http.Request) {
	pctx := h.current()
	httputil.WriteJSON(w, http.StatusOK, practiceResponse{
		Practice: pctx.Practice,
		Modules:  pctx.Modules,
		DeviceID: h.app.DeviceID,
	})
}

type switchPracticeRequest struct {
	Practice string `json:"practice"`
}

func (h *Handler) handleSwitchPractice(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[switchPracticeRequest](w, r)
	if !ok {
		return
	}
	if req.Practice != schema.PracticeVet && req.Practice != schema.PracticeHuman {
		httputil.WriteError(w, httputil.NewError(httputil.CodeInvalidArgument, "practice must be vet or human"))
		return
	}

	h.mu.Lock()
	next, err := h.app.Practice.SwitchPractice(r.Context(), h.pctx, req.Practice)
	if err == nil {
		h.pctx = next
	}
	h.mu.Unlock()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, practiceResponse{
		Practice: next.Practice,
		Modules:  next.Modules,
		DeviceID: h.app.DeviceID,
	})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	doc, err := h.app.Records.GetSettings(r.Context())
	h.respond(w, doc, err)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	fields, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.UpdateSettings(r.Context(), fields)
	h.respond(w, doc, err)
}

func (h *Handler) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.CreatePatient(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListPatients(w http.ResponseWriter, r *http.Request) {
	docs, err := h.app.Records.ListPatients(r.Context(), r.URL.Query().Get("name"))
	h.respondList(w, docs, err)
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	doc, err := h.app.Records.GetPatient(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, doc, err)
}

func (h *Handler) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	fields, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.UpdatePatient(r.Context(), chi.URLParam(r, "id"), fields)
	h.respond(w, doc, err)
}

func (h *Handler) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeletePatient(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.CreateExam(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	docs, err := h.app.Records.ListExams(r.Context(), r.URL.Query().Get("patient_id"))
	h.respondList(w, docs, err)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	doc, err := h.app.Records.GetExam(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, doc, err)
}

func (h *Handler) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	fields, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.UpdateExam(r.Context(), chi.URLParam(r, "id"), fields)
	h.respond(w, doc, err)
}

func (h *Handler) handleFinalizeExam(w http.ResponseWriter, r *http.Request) {
	doc, err := h.app.Records.FinalizeExam(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, doc, err)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeleteExam(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleAttachImage(w http.ResponseWriter, r *http.Request) {
	image, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.AttachImage(r.Context(), chi.URLParam(r, "id"), image)
	h.respond(w, doc, err)
}

func (h *Handler) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.RemoveImage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "imageID"))
	h.respondDeleted(w, err)
}

type createProfileRequest struct {
	Name   string           `json:"name"`
	Fields records.Document `json:"fields"`
}

func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createProfileRequest](w, r)
	if !ok {
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, httputil.NewError(httputil.CodeInvalidArgument, "name is required"))
		return
	}
	doc, err := h.app.Records.CreateProfile(r.Context(), req.Name, req.Fields)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	docs, err := h.app.Records.ListProfiles(r.Context())
	h.respondList(w, docs, err)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	fields, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.UpdateProfile(r.Context(), chi.URLParam(r, "id"), fields)
	h.respond(w, doc, err)
}

func (h *Handler) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	doc, err := h.app.Records.ActivateProfile(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, doc, err)
}

func (h *Handler) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeleteProfile(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.CreateTemplate(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	docs, err := h.app.Records.ListTemplates(r.Context(), r.URL.Query().Get("organ"))
	h.respondList(w, docs, err)
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	fields, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), fields)
	h.respond(w, doc, err)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeleteTemplate(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleCreateReferenceValue(w http.ResponseWriter, r *http.Request) {
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.CreateReferenceValue(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListReferenceValues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := h.app.Records.ListReferenceValues(r.Context(), records.ReferenceFilter{
		Organ:   q.Get("organ"),
		Species: q.Get("species"),
	})
	h.respondList(w, docs, err)
}

func (h *Handler) handleUpdateReferenceValue(w http.ResponseWriter, r *http.Request) {
	fields, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.UpdateReferenceValue(r.Context(), chi.URLParam(r, "id"), fields)
	h.respond(w, doc, err)
}

func (h *Handler) handleDeleteReferenceValue(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeleteReferenceValue(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleCreateDrug(w http.ResponseWriter, r *http.Request) {
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.CreateDrug(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListDrugs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := h.app.Records.ListDrugs(r.Context(), q.Get("type"), q.Get("name"))
	h.respondList(w, docs, err)
}

func (h *Handler) handleDeleteDrug(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeleteDrug(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleCreatePrescription(w http.ResponseWriter, r *http.Request) {
	if !h.requireModule(w, practice.ModulePrescription) {
		return
	}
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.CreatePrescription(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListPrescriptions(w http.ResponseWriter, r *http.Request) {
	docs, err := h.app.Records.ListPrescriptions(r.Context(), r.URL.Query().Get("patient_id"))
	h.respondList(w, docs, err)
}

func (h *Handler) handleDeletePrescription(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeletePrescription(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireModule(w, practice.ModuleFinancial) {
		return
	}
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.AddTransaction(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := h.app.Records.ListTransactions(r.Context(), records.TransactionFilter{
		Type:      q.Get("type"),
		Category:  q.Get("category"),
		PatientID: q.Get("patient_id"),
	})
	h.respondList(w, docs, err)
}

func (h *Handler) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	fields, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.UpdateTransaction(r.Context(), chi.URLParam(r, "id"), fields)
	h.respond(w, doc, err)
}

func (h *Handler) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeleteTransaction(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.app.Records.GetBalance(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balance)
}

func (h *Handler) handleCreateLabExam(w http.ResponseWriter, r *http.Request) {
	if !h.requireModule(w, practice.ModuleLabVet) {
		return
	}
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.CreateLabExam(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListLabExams(w http.ResponseWriter, r *http.Request) {
	docs, err := h.app.Records.ListLabExams(r.Context(), r.URL.Query().Get("patient_id"))
	h.respondList(w, docs, err)
}

func (h *Handler) handleDeleteLabExam(w http.ResponseWriter, r *http.Request) {
	err := h.app.Records.DeleteLabExam(r.Context(), chi.URLParam(r, "id"))
	h.respondDeleted(w, err)
}

func (h *Handler) handleCreateOphthalmoExam(w http.ResponseWriter, r *http.Request) {
	if !h.requireModule(w, practice.ModuleOphthalmoHuman) {
		return
	}
	doc, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.CreateOphthalmoExam(r.Context(), doc)
	h.respondCreated(w, doc, err)
}

func (h *Handler) handleListOphthalmoExams(w http.ResponseWriter, r *http.Request) {
	docs, err := h.app.Records.ListOphthalmoExams(r.Context(), r.URL.Query().Get("exam_id"))
	h.respondList(w, docs, err)
}

func (h *Handler) handleGetOphthalmoExam(w http.ResponseWriter, r *http.Request) {
	doc, err := h.app.Records.GetOphthalmoExam(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, doc, err)
}

func (h *Handler) handleUpdateOphthalmoExam(w http.ResponseWriter, r *http.Request) {
	fields, ok := httputil.Decode[records.Document](w, r)
	if !ok {
		return
	}
	doc, err := h.app.Records.UpdateOphthalmoExam(r.Context(), chi.URLParam(r, "id"), fields)
	h.respond(w, doc, err)
}

func (h *Handler) requireModule(w http.ResponseWriter, module string) bool {
	if h.current().HasModule(module) {
		return true
	}
	httputil.WriteError(w, httputil.NewError(httputil.CodeInvalidArgument, module+" module is not enabled"))
	return false
}

func (h *Handler) respond(w http.ResponseWriter, doc records.Document, err error) {
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) respondCreated(w http.ResponseWriter, doc records.Document, err error) {
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) respondList(w http.ResponseWriter, docs []records.Document, err error) {
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if docs == nil {
		docs = []records.Document{}
	}
	httputil.WriteJSON(w, http.StatusOK, docs)
}

func (h *Handler) respondDeleted(w http.ResponseWriter, err error) {
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	var verr *schema.ValidationError
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		httputil.WriteError(w, httputil.NewError(httputil.CodeNotFound, "document not found"))
	case errors.Is(err, docstore.ErrDuplicateKey):
		httputil.WriteError(w, httputil.NewError(httputil.CodeInvalidArgument, "duplicate id"))
	case errors.As(err, &verr):
		httputil.WriteError(w, httputil.NewError(httputil.CodeInvalidArgument, verr.Error()))
	default:
		httputil.WriteError(w, err)
	}
}
