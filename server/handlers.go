package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	apperrors "github.com/chetanran/devsecops-sec-dashboard/internal/errors"

	"github.com/chetanran/devsecops-sec-dashboard/findings"
	"github.com/chetanran/devsecops-sec-dashboard/findings/parsers"
)

// maxUploadBytes caps scanner report uploads. Trivy reports on large
// repos run to a few MB; 32MB leaves generous headroom.
const maxUploadBytes = 32 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// RootHandler reports the API name and version
func (s *Server) RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  s.config.GetAppName() + " API",
			"version": APIVersion,
		})
	}
}

// HealthHandler is the liveness probe
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// CloudFindingsHandler lists all cloud security findings
func (s *Server) CloudFindingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listed, err := s.repo.Cloud()
		if err != nil {
			s.logger.Error().Err(err).Msg("listing cloud findings")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list findings")
			return
		}
		writeJSON(w, http.StatusOK, listed)
	}
}

// SecretFindingsHandler lists all secrets detected in code
func (s *Server) SecretFindingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listed, err := s.repo.Secrets()
		if err != nil {
			s.logger.Error().Err(err).Msg("listing secret findings")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list findings")
			return
		}
		writeJSON(w, http.StatusOK, listed)
	}
}

// IaCFindingsHandler lists all IaC security findings
func (s *Server) IaCFindingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listed, err := s.repo.IaC()
		if err != nil {
			s.logger.Error().Err(err).Msg("listing iac findings")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list findings")
			return
		}
		writeJSON(w, http.StatusOK, listed)
	}
}

// uploadPayload reads the scanner report from the request: either a
// multipart form with a "file" field, or the raw request body.
func uploadPayload(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

// UploadCheckovHandler ingests a Checkov scan report
func (s *Server) UploadCheckovHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := uploadPayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "Could not read upload")
			return
		}
		parsed, err := parsers.ParseCheckov(payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "Could not parse Checkov report")
			return
		}
		if err := s.repo.AddCloud(parsed...); err != nil {
			s.logger.Error().Err(err).Msg("storing cloud findings")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to store findings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Processed %d cloud findings", len(parsed)),
		})
	}
}

// UploadGitleaksHandler ingests a Gitleaks scan report
func (s *Server) UploadGitleaksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := uploadPayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "Could not read upload")
			return
		}
		parsed, err := parsers.ParseGitleaks(payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "Could not parse Gitleaks report")
			return
		}
		if err := s.repo.AddSecrets(parsed...); err != nil {
			s.logger.Error().Err(err).Msg("storing secret findings")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to store findings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Processed %d secret findings", len(parsed)),
		})
	}
}

// UploadTrivyHandler ingests a Trivy config-scan report
func (s *Server) UploadTrivyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := uploadPayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "Could not read upload")
			return
		}
		parsed, err := parsers.ParseTrivy(payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "Could not parse Trivy report")
			return
		}
		if err := s.repo.AddIaC(parsed...); err != nil {
			s.logger.Error().Err(err).Msg("storing iac findings")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to store findings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Processed %d IaC findings", len(parsed)),
		})
	}
}

func findingIndex(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("index"))
}

func decodeUpdate(r *http.Request) (findings.FindingUpdate, error) {
	var update findings.FindingUpdate
	err := json.NewDecoder(r.Body).Decode(&update)
	return update, err
}

func (s *Server) writeUpdated(w http.ResponseWriter, finding any, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Finding updated",
			"finding": finding,
		})
	case errors.Is(err, apperrors.ErrFindingNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Finding not found")
	default:
		s.logger.Error().Err(err).Msg("updating finding")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update finding")
	}
}

// UpdateCloudFindingHandler updates the triage fields of one cloud finding
func (s *Server) UpdateCloudFindingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := findingIndex(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_index", "Index must be an integer")
			return
		}
		update, err := decodeUpdate(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "Could not decode update")
			return
		}
		finding, err := s.repo.UpdateCloud(index, update)
		s.writeUpdated(w, finding, err)
	}
}

// UpdateSecretFindingHandler updates the triage fields of one secret finding
func (s *Server) UpdateSecretFindingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := findingIndex(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_index", "Index must be an integer")
			return
		}
		update, err := decodeUpdate(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "Could not decode update")
			return
		}
		finding, err := s.repo.UpdateSecret(index, update)
		s.writeUpdated(w, finding, err)
	}
}

// UpdateIaCFindingHandler updates the triage fields of one IaC finding
func (s *Server) UpdateIaCFindingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := findingIndex(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_index", "Index must be an integer")
			return
		}
		update, err := decodeUpdate(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "Could not decode update")
			return
		}
		finding, err := s.repo.UpdateIaC(index, update)
		s.writeUpdated(w, finding, err)
	}
}

// ClearFindingsHandler removes every stored finding
func (s *Server) ClearFindingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.repo.Clear(); err != nil {
			s.logger.Error().Err(err).Msg("clearing findings")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to clear findings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "All findings cleared"})
	}
}

// StatsSummaryHandler reports finding counts and the severity breakdown
func (s *Server) StatsSummaryHandler() http.HandlerFunc {
	summaryError := func(w http.ResponseWriter, err error) {
		s.logger.Error().Err(err).Msg("building stats summary")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to build summary")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		cloud, err := s.repo.Cloud()
		if err != nil {
			summaryError(w, err)
			return
		}
		secrets, err := s.repo.Secrets()
		if err != nil {
			summaryError(w, err)
			return
		}
		iac, err := s.repo.IaC()
		if err != nil {
			summaryError(w, err)
			return
		}

		var summary findings.SeveritySummary
		for _, finding := range cloud {
			summary.Add(finding.Severity)
		}
		for _, finding := range secrets {
			summary.Add(finding.Severity)
		}
		for _, finding := range iac {
			summary.Add(finding.Severity)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"total_cloud_findings": len(cloud),
			"total_secrets":        len(secrets),
			"total_iac_findings":   len(iac),
			"severity_breakdown":   summary,
		})
	}
}
