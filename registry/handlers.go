package registry

import (
	"net/http"
	"strings"
	"time"

	"github.com/softee/managed/internal/httputil"
)

// API serves the registry for external inspection: object listing,
// attribute reads and operation invocation.
type API struct {
	registry *Registry
	mux      *http.ServeMux
}

type objectSummary struct {
	ID           string    `json:"id"`
	ObjectName   string    `json:"object_name"`
	RegisteredAt time.Time `json:"registered_at"`
	Attributes   int       `json:"attributes"`
	Operations   int       `json:"operations"`
}

type attributeView struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Value       any    `json:"value"`
}

type operationView struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Impact      Impact `json:"impact"`
}

type objectView struct {
	ID           string          `json:"id"`
	ObjectName   string          `json:"object_name"`
	RegisteredAt time.Time       `json:"registered_at"`
	Attributes   []attributeView `json:"attributes"`
	Operations   []operationView `json:"operations"`
}

type registrySummary struct {
	TotalObjects    int            `json:"total_objects"`
	TotalAttributes int            `json:"total_attributes"`
	TotalOperations int            `json:"total_operations"`
	ObjectsByDomain map[string]int `json:"objects_by_domain"`
	LastUpdated     time.Time      `json:"last_updated"`
}

func NewAPI(r *Registry) *API {
	api := &API{
		registry: r,
		mux:      http.NewServeMux(),
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.mux.HandleFunc("/api/objects", a.handleObjects)
	a.mux.HandleFunc("/api/objects/", a.handleObjectByName)
	a.mux.HandleFunc("/api/summary", a.handleSummary)
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) handleObjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summaries := make([]objectSummary, 0, a.registry.Len())
	for _, reg := range a.registry.registrations() {
		summaries = append(summaries, objectSummary{
			ID:           reg.ID,
			ObjectName:   reg.Name.String(),
			RegisteredAt: reg.RegisteredAt,
			Attributes:   len(reg.Object.ManagedAttributes()),
			Operations:   len(reg.Object.ManagedOperations()),
		})
	}

	httputil.WriteJSON(w, summaries, http.StatusOK)
}

// handleObjectByName routes /api/objects/{name}, where {name} may be
// followed by /attributes/{attr} or /operations/{op}.
func (a *API) handleObjectByName(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/objects/")
	if rest == "" {
		httputil.WriteJSONError(w, "Object name is required", http.StatusBadRequest)
		return
	}

	if name, attr, ok := strings.Cut(rest, "/attributes/"); ok {
		a.readAttribute(w, r, name, attr)
		return
	}
	if name, op, ok := strings.Cut(rest, "/operations/"); ok {
		a.invokeOperation(w, r, name, op)
		return
	}

	a.readObject(w, r, rest)
}

func (a *API) readObject(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reg, ok := a.registry.Lookup(name)
	if !ok {
		httputil.WriteJSONError(w, "Object not found", http.StatusNotFound)
		return
	}

	view := objectView{
		ID:           reg.ID,
		ObjectName:   reg.Name.String(),
		RegisteredAt: reg.RegisteredAt,
		Attributes:   make([]attributeView, 0),
		Operations:   make([]operationView, 0),
	}
	for _, attr := range reg.Object.ManagedAttributes() {
		view.Attributes = append(view.Attributes, attributeView{
			Name:        attr.Name,
			Description: attr.Description,
			Value:       attr.Eval(),
		})
	}
	for _, op := range reg.Object.ManagedOperations() {
		view.Operations = append(view.Operations, operationView{
			Name:        op.Name,
			Description: op.Description,
			Impact:      op.Impact,
		})
	}

	httputil.WriteJSON(w, view, http.StatusOK)
}

func (a *API) readAttribute(w http.ResponseWriter, r *http.Request, name, attrName string) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reg, ok := a.registry.Lookup(name)
	if !ok {
		httputil.WriteJSONError(w, "Object not found", http.StatusNotFound)
		return
	}

	for _, attr := range reg.Object.ManagedAttributes() {
		if attr.Name == attrName {
			httputil.WriteJSON(w, attributeView{
				Name:        attr.Name,
				Description: attr.Description,
				Value:       attr.Eval(),
			}, http.StatusOK)
			return
		}
	}

	httputil.WriteJSONError(w, "Attribute not found", http.StatusNotFound)
}

func (a *API) invokeOperation(w http.ResponseWriter, r *http.Request, name, opName string) {
	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reg, ok := a.registry.Lookup(name)
	if !ok {
		httputil.WriteJSONError(w, "Object not found", http.StatusNotFound)
		return
	}

	for _, op := range reg.Object.ManagedOperations() {
		if op.Name == opName {
			if err := op.Invoke(); err != nil {
				httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
				return
			}

			httputil.WriteJSON(w, map[string]string{
				"operation": op.Name,
				"impact":    string(op.Impact),
				"status":    "invoked",
			}, http.StatusOK)
			return
		}
	}

	httputil.WriteJSONError(w, "Operation not found", http.StatusNotFound)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary := registrySummary{
		ObjectsByDomain: make(map[string]int),
		LastUpdated:     time.Now(),
	}
	for _, reg := range a.registry.registrations() {
		summary.TotalObjects++
		summary.TotalAttributes += len(reg.Object.ManagedAttributes())
		summary.TotalOperations += len(reg.Object.ManagedOperations())
		summary.ObjectsByDomain[reg.Name.Domain]++
	}

	httputil.WriteJSON(w, summary, http.StatusOK)
}
