package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, RefreshToken from user.go
// - University, Course from university.go
// - SyncJob from sync.go
// - Resume, ResumeProfile from resume.go

// Database schema overview:
// 1. users - Admin accounts managed by cookie-based authentication
// 2. universities - Directory of higher-education institutions, keyed by (source, source_key)
// 3. courses - Courses offered by a university, keyed by (university_id, source_key)
// 4. sync_jobs - One row per import/enrichment/analysis run; doubles as the sync log
// 5. resumes - Uploaded resume files with extracted raw text
// 6. resume_profiles - AI-extracted personal info and skills for a resume
