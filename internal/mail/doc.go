// Package mail provides the business boundary for sift's email triage system.
// It defines the domain model (Message, ImportanceScore, Summary,
// AnalysisConfig), the Store persistence interface, the deletion-candidate
// predicate, and aggregation helpers for presentation.
package mail
