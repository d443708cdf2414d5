package handlers

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
)

// V1GetAsset handles GET and HEAD /assets/{path} requests.
//
// The asset is staged in tmpDir, served with http.ServeContent and the
// staging file is removed once the response is written.
func V1GetAsset(assets Assets, tmpDir string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetFile, err := ParseAssetPath(chi.URLParam(r, "*"))
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}
		if assetFile == "" {
			SendErrorResponse(w, logger, fmt.Errorf("asset path required"), http.StatusBadRequest)
			return
		}

		exists, err := assets.Exists(r.Context(), assetFile)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		if !exists {
			SendErrorResponse(w, logger, fmt.Errorf("%w: %s", ErrAssetNotFound, assetFile), http.StatusNotFound)
			return
		}

		staging, err := os.CreateTemp(tmpDir, "gateway-*-"+pathutil.Flatten(pathutil.Base(assetFile)))
		if err != nil {
			SendErrorResponse(w, logger, fmt.Errorf("cannot create staging file: %w", err), http.StatusInternalServerError)
			return
		}
		stagingPath := staging.Name()
		staging.Close()

		defer func() {
			if err := os.Remove(stagingPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("Failed to remove staging file",
					log.Path("local", stagingPath),
					zap.Error(err))
			}
		}()

		if _, err := assets.Get(r.Context(), assetFile, stagingPath); err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		f, err := os.Open(stagingPath)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		logger.Debug("Serving asset",
			log.Path("asset", assetFile),
			zap.Int64("size", info.Size()))

		http.ServeContent(w, r, pathutil.Base(assetFile), info.ModTime(), f)
	}
}
