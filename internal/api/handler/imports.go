package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/albapepper/courtside/internal/api/respond"
	"github.com/albapepper/courtside/internal/cache"
	"github.com/albapepper/courtside/internal/metrics"
	"github.com/albapepper/courtside/internal/roster"
)

const maxRowsBody = 20 << 20

// RowsRequest carries normalized rows back for preview or execute.
type RowsRequest struct {
	Rows []roster.ImportRow `json:"rows"`
}

// GetImportTemplate serves the blank roster workbook.
// @Summary Download import template
// @Description Returns an .xlsx workbook with the canonical headers, an example row and instructions.
// @Tags imports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary
// @Failure 401 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Router /api/v1/imports/template [get]
func (h *Handler) GetImportTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := roster.Template()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.WriteFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		roster.TemplateFilename, data)
}

// ParseImport reads an uploaded roster spreadsheet.
// @Summary Parse roster spreadsheet
// @Description Normalizes headers, validates every row and returns clean rows plus errors and warnings. Nothing is written.
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Roster workbook (.xlsx or .xls) or CSV"
// @Success 200 {object} roster.ParseResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Router /api/v1/imports/parse [post]
func (h *Handler) ParseImport(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(10 << 20)
	if h.cfg != nil && h.cfg.MaxUploadBytes > 0 {
		maxBytes = h.cfg.MaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Expected a multipart upload", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Could not read upload", err.Error())
		return
	}

	res, err := roster.ParseUpload(header.Filename, data)
	if err != nil {
		msg := "Could not read spreadsheet"
		switch {
		case errors.Is(err, roster.ErrUnsupportedFile):
			msg = "Unsupported file type; upload .xlsx, .xls or .csv"
		case errors.Is(err, roster.ErrEmptySheet):
			msg = "The spreadsheet has no header row"
		}
		respond.WriteErrorDetail(w, http.StatusBadRequest, respond.CodeInvalidRequest, msg, err.Error())
		return
	}

	h.logger.Info("Import parsed",
		"file", header.Filename, "total", res.Summary.Total, "valid", res.Summary.Valid, "errors", res.Summary.Error)
	respond.WriteJSONObject(w, http.StatusOK, res)
}

// PreviewImport classifies rows against stored data without writing.
// @Summary Preview roster import
// @Description Classifies each row as new, update, no_change or error and lists field changes.
// @Tags imports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RowsRequest true "Rows returned by parse"
// @Success 200 {object} roster.PreviewResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Router /api/v1/imports/preview [post]
func (h *Handler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	if h.roster == nil {
		notConfigured(w, "Roster store")
		return
	}
	var req RowsRequest
	if !respond.DecodeJSON(w, r, maxRowsBody, &req) {
		return
	}

	res, err := roster.NewReconciler(h.roster, h.logger).Preview(r.Context(), req.Rows)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	for _, row := range res.Rows {
		metrics.PreviewRows.WithLabelValues(string(row.Status)).Inc()
	}
	respond.WriteJSONObject(w, http.StatusOK, res)
}

// ExecuteImport applies rows, one transaction per row. The rows are
// previewed first and the import is refused while any of them would fail,
// unless force is set.
// @Summary Execute roster import
// @Description Upserts teams, parents and players for every valid row. Refuses with 409 when the preview has error or invalid rows unless force=true; with force, failing rows are reported and skipped.
// @Tags imports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RowsRequest true "Rows returned by parse"
// @Param force query bool false "Import valid rows even when some rows fail"
// @Success 200 {object} roster.ImportResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /api/v1/imports/execute [post]
func (h *Handler) ExecuteImport(w http.ResponseWriter, r *http.Request) {
	if h.roster == nil {
		notConfigured(w, "Roster store")
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	var req RowsRequest
	if !respond.DecodeJSON(w, r, maxRowsBody, &req) {
		return
	}

	if !force {
		preview, err := roster.NewReconciler(h.roster, h.logger).Preview(r.Context(), req.Rows)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		if bad := preview.Summary.Error + len(rejectedRowNumbers(preview.Rejected)); bad > 0 {
			h.logger.Warn("Import refused", "error_rows", bad)
			respond.WriteErrorDetail(w, http.StatusConflict, respond.CodeConflict,
				"Preview found rows that would fail; fix them or retry with force=true",
				fmt.Sprintf("%d error rows", bad))
			return
		}
	}

	res, err := roster.NewExecutor(h.roster, h.logger).Execute(r.Context(), req.Rows)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	metrics.ImportRows.WithLabelValues("success").Add(float64(res.Success))
	metrics.ImportRows.WithLabelValues("error").Add(float64(res.Errors))
	if res.Players.Created+res.Players.Updated+res.Teams.Created+res.Teams.Updated > 0 {
		h.cache.Invalidate(cache.PrefixTeams)
	}

	h.logger.Info("Import executed", "summary", res.Summary())
	respond.WriteJSONObject(w, http.StatusOK, res)
}

func rejectedRowNumbers(errs []roster.ValidationError) map[int]struct{} {
	rows := make(map[int]struct{}, len(errs))
	for _, e := range errs {
		rows[e.Row] = struct{}{}
	}
	return rows
}
