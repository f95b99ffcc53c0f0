package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/repository"
	"github.com/nguyenthenguyen/docx"
)

// ResumeService stores uploaded resumes and extracts a structured profile
// from them with the AI model.
type ResumeService struct {
	repo   *repository.GORMRepository
	gemini *GeminiService
}

func NewResumeService(repo *repository.GORMRepository, gemini *GeminiService) *ResumeService {
	return &ResumeService{
		repo:   repo,
		gemini: gemini,
	}
}

// Register binds the resume profile runner to its sync kind.
func (s *ResumeService) Register(syncService *SyncService) {
	syncService.RegisterRunner(models.SyncKindResume, s.RunProfiles)
}

// Upload extracts the text from an uploaded resume and stores both.
func (s *ResumeService) Upload(ctx context.Context, fileName, mimeType string, data []byte) (*models.Resume, error) {
	text, err := ExtractResumeText(mimeType, data)
	if err != nil {
		return nil, err
	}

	resume := &models.Resume{
		FileName: fileName,
		MimeType: mimeType,
		Size:     int64(len(data)),
		RawText:  text,
	}
	if err := s.repo.CreateResume(ctx, resume); err != nil {
		return nil, fmt.Errorf("failed to store resume: %w", err)
	}

	slog.Info("Resume uploaded", "resume_id", resume.ID, "file", fileName, "size", len(data))
	return resume, nil
}

// RunProfiles builds AI profiles for every resume that does not have one yet.
func (s *ResumeService) RunProfiles(ctx context.Context, job *models.SyncJob, report ProgressFunc) error {
	if !s.gemini.Available() {
		return fmt.Errorf("AI client not configured")
	}

	resumes, err := s.repo.ListResumes(ctx, 100)
	if err != nil {
		return fmt.Errorf("failed to list resumes: %w", err)
	}

	found, created, failed := 0, 0, 0
	for i := range resumes {
		if err := ctx.Err(); err != nil {
			return err
		}

		resume := &resumes[i]
		if resume.Profile != nil {
			continue
		}
		found++
		report(found, created, 0, failed)

		profile, err := s.ExtractProfile(ctx, resume)
		if err != nil {
			slog.Warn("Profile extraction failed", "resume_id", resume.ID, "error", err)
			failed++
			report(found, created, 0, failed)
			continue
		}

		if err := s.repo.SaveResumeProfile(ctx, profile); err != nil {
			slog.Error("Failed to save resume profile", "resume_id", resume.ID, "error", err)
			failed++
		} else {
			created++
		}
		report(found, created, 0, failed)
	}

	return nil
}

type extractedProfile struct {
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Location string   `json:"location"`
	Headline string   `json:"headline"`
	Summary  string   `json:"summary"`
	Skills   []string `json:"skills"`
}

// ExtractProfile asks the model for a structured profile of one resume.
func (s *ResumeService) ExtractProfile(ctx context.Context, resume *models.Resume) (*models.ResumeProfile, error) {
	text := truncate(resume.RawText, 12000)

	prompt := fmt.Sprintf(`Extract a structured profile from this resume. Respond ONLY with valid JSON, no explanations.

Resume text:
%s

Fields (use empty string or empty array when absent):
- full_name
- email
- phone
- location
- headline: one-line professional title
- summary: 2-3 sentence professional summary
- skills: array of skill names

JSON:`, text)

	var extracted extractedProfile
	if _, err := s.gemini.GenerateJSON(ctx, "You extract structured candidate profiles from resume text.", prompt, &extracted); err != nil {
		return nil, err
	}

	skills, err := json.Marshal(extracted.Skills)
	if err != nil {
		skills = []byte("[]")
	}

	return &models.ResumeProfile{
		ResumeID: resume.ID,
		FullName: extracted.FullName,
		Email:    extracted.Email,
		Phone:    extracted.Phone,
		Location: extracted.Location,
		Headline: extracted.Headline,
		Summary:  extracted.Summary,
		Skills:   string(skills),
	}, nil
}

// ExtractResumeText converts an uploaded file to plain text.
func ExtractResumeText(mime string, data []byte) (string, error) {
	switch mime {
	case "text/plain":
		return string(data), nil

	case "application/pdf":
		return extractPDFText(data)

	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return extractDocxText(data)

	default:
		return "", fmt.Errorf("unsupported file type: %s", mime)
	}
}

func extractPDFText(data []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, _ := page.GetPlainText(nil)
		textBuilder.WriteString(text)
	}
	return textBuilder.String(), nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return doc.Editable().GetContent(), nil
}
