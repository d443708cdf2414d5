package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ListResponse is the JSON body of a directory listing.
type ListResponse struct {
	Path    string   `json:"path"`
	Pattern string   `json:"pattern,omitempty"`
	Count   int      `json:"count"`
	Items   []string `json:"items"`
}

// V1ListAssets handles GET /list/{dir} requests. The optional pattern query
// parameter keeps entries containing it, ignoring case.
func V1ListAssets(assets Assets, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dir, err := ParseAssetPath(chi.URLParam(r, "*"))
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		pattern := r.URL.Query().Get("pattern")

		items, err := assets.ListFiles(r.Context(), dir, pattern)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []string{}
		}

		SendJSONResponse(w, ListResponse{
			Path:    dir,
			Pattern: pattern,
			Count:   len(items),
			Items:   items,
		})
	}
}
