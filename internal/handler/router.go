package handler

import "github.com/gin-gonic/gin"

// Handlers groups every API handler mounted under the API prefix.
type Handlers struct {
	Persons     *PersonHandler
	Lifecycle   *LifecycleHandler
	Candidacies *CandidacyHandler
	Documents   *DocumentHandler
	Dossiers    *DossierHandler
	Enrollments *EnrollmentHandler
	Compliance  *ComplianceHandler
}

// Register mounts the API routes on group.
func Register(group *gin.RouterGroup, h Handlers) {
	group.GET("/requirements/:tier", h.Dossiers.Requirements)

	persons := group.Group("/persons")
	persons.GET("", h.Persons.List)
	persons.POST("", h.Persons.Create)
	persons.GET("/:id", h.Persons.Get)
	persons.DELETE("/:id", h.Persons.Archive)
	persons.POST("/:id/dossier-sent", h.Persons.MarkDossierSent)
	persons.GET("/:id/candidacies", h.Persons.Candidacies)
	persons.GET("/:id/lifecycle", h.Lifecycle.Current)
	persons.POST("/:id/lifecycle/resync", h.Lifecycle.Resync)

	group.GET("/lifecycle/summary", h.Lifecycle.Summary)

	candidacies := group.Group("/candidacies")
	candidacies.POST("", h.Candidacies.Create)
	candidacies.GET("/:id", h.Candidacies.Get)
	candidacies.PATCH("/:id/status", h.Candidacies.UpdateStatus)
	candidacies.PATCH("/:id/financing", h.Candidacies.UpdateFinancing)
	candidacies.GET("/:id/dossier", h.Dossiers.Candidacy)
	candidacies.GET("/:id/documents", h.Documents.List)
	candidacies.POST("/:id/documents", h.Documents.Submit)

	group.PATCH("/documents/:id/review", h.Documents.Review)

	enrollments := group.Group("/enrollments")
	enrollments.POST("", h.Enrollments.Create)
	enrollments.GET("/:id", h.Enrollments.Get)
	enrollments.PATCH("/:id/status", h.Enrollments.UpdateStatus)
	enrollments.GET("/:id/dossier", h.Dossiers.Enrollment)

	exports := group.Group("/compliance/exports")
	exports.POST("", h.Compliance.Generate)
	exports.GET("/:token", h.Compliance.Download)
}
