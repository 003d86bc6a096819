package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/middleware"
	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Evaluations   *EvaluationHandler
	Grades        *GradeHandler
	Projects      *ProjectHandler
	Assignments   *AssignmentHandler
	Certificates  *CertificateHandler
	Cohorts       *CohortHandler
	Notifications *NotificationHandler
	History       *HistoryHandler
	Reports       *ReportHandler
	Metrics       *MetricsHandler
}

const (
	roleAdmin     = string(models.RoleAdministrator)
	roleEvaluator = string(models.RoleEvaluator)
	roleStudent   = string(models.RoleStudent)
)

// RegisterRoutes mounts the versioned API under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	api := r.Group(prefix)

	authn := middleware.JWT(auth)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", authn, h.Auth.Logout)
		authGroup.PATCH("/change-password", authn, h.Auth.ChangePassword)
		authGroup.GET("/profile", authn, h.Auth.Profile)
		authGroup.GET("/verify", authn, h.Auth.Verify)
	}

	users := api.Group("/usuarios", authn)
	{
		users.POST("", middleware.RBAC(roleAdmin), h.Users.Create)
		users.GET("", middleware.RBAC(roleAdmin, roleEvaluator), h.Users.List)
		users.GET("/perfil", h.Auth.Profile)
		users.GET("/evaluadores", middleware.RBAC(roleAdmin), h.Users.Evaluators)
		users.GET("/estudiantes", middleware.RBAC(roleAdmin, roleEvaluator), h.Users.Students)
		users.GET("/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.Users.Get)
		users.PUT("/:id", middleware.RBAC(roleAdmin, "SELF"), h.Users.Update)
		users.DELETE("/:id", middleware.RBAC(roleAdmin), h.Users.Delete)
	}

	evaluations := api.Group("/evaluaciones", authn)
	{
		evaluations.POST("", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.Create)
		evaluations.GET("", middleware.RBAC(roleAdmin, roleEvaluator), h.Evaluations.List)
		evaluations.GET("/mis-evaluaciones", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.ListMine)
		evaluations.GET("/estudiante/:id", middleware.RBAC(roleStudent, roleEvaluator, roleAdmin), h.Evaluations.ListByStudent)
		evaluations.GET("/evaluador/:id", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.ListByEvaluator)
		evaluations.GET("/activas", h.Evaluations.ListActive)
		evaluations.GET("/vencidas", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.ListOverdue)
		evaluations.GET("/estadisticas", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.Statistics)
		evaluations.GET("/dashboard/resumen", middleware.RBAC(roleAdmin), h.Evaluations.Dashboard)
		evaluations.GET("/dashboard/metricas-evaluador", middleware.RBAC(roleEvaluator), h.Evaluations.EvaluatorMetrics)
		evaluations.GET("/:id", h.Evaluations.Get)
		evaluations.PATCH("/:id", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.Update)
		evaluations.PATCH("/:id/estado", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.ChangeState)
		evaluations.PATCH("/:id/estudiantes", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.AssignStudents)
		evaluations.DELETE("/:id", middleware.RBAC(roleEvaluator, roleAdmin), h.Evaluations.Delete)
	}

	grades := api.Group("/calificaciones", authn)
	{
		grades.POST("", middleware.RBAC(roleEvaluator, roleAdmin), h.Grades.Record)
		grades.POST("/masiva", middleware.RBAC(roleEvaluator, roleAdmin), h.Grades.BulkRecord)
		grades.GET("", middleware.RBAC(roleAdmin), h.Grades.List)
		grades.GET("/mis-calificaciones", middleware.RBAC(roleEvaluator), h.Grades.ListMine)
		grades.GET("/evaluacion/:id", h.Grades.ListByEvaluation)
		grades.GET("/evaluacion/:id/promedio", h.Grades.Average)
		grades.GET("/evaluacion/:id/estadisticas", middleware.RBAC(roleEvaluator, roleAdmin), h.Grades.Statistics)
		grades.GET("/:id", h.Grades.Get)
		grades.PUT("/:id", middleware.RBAC(roleEvaluator, roleAdmin), h.Grades.Update)
		grades.DELETE("/:id", middleware.RBAC(roleAdmin), h.Grades.Delete)
		grades.DELETE("/evaluacion/:id", middleware.RBAC(roleAdmin), h.Grades.DeleteByEvaluation)
	}

	projects := api.Group("/proyectos", authn)
	{
		projects.POST("", h.Projects.Create)
		projects.GET("", middleware.RBAC(roleAdmin), h.Projects.List)
		projects.GET("/mis-proyectos", h.Projects.ListMine)
		projects.GET("/asignados", middleware.RBAC(roleEvaluator, roleAdmin), h.Projects.ListAssigned)
		projects.GET("/disponibles", middleware.RBAC(roleStudent, roleEvaluator), h.Projects.ListAvailable)
		projects.GET("/estado/:estado", middleware.RBAC(roleAdmin, roleEvaluator), h.Projects.ListByState)
		projects.GET("/estadisticas", middleware.RBAC(roleAdmin, roleEvaluator), h.Projects.Statistics)
		projects.GET("/dashboard/resumen", middleware.RBAC(roleAdmin), h.Projects.Dashboard)
		projects.GET("/:id", h.Projects.Get)
		projects.PUT("/:id", h.Projects.Update)
		projects.PUT("/:id/estado", h.Projects.ChangeState)
		projects.PUT("/:id/asignar-evaluador", middleware.RBAC(roleAdmin), h.Projects.AssignEvaluator)
		projects.GET("/:id/instructores", h.Projects.Instructors)
		projects.POST("/:id/instructores", middleware.RBAC(roleAdmin, roleEvaluator), h.Projects.AddInstructor)
		projects.DELETE("/:id/instructores/:instructorId", middleware.RBAC(roleAdmin, roleEvaluator), h.Projects.RemoveInstructor)
		projects.DELETE("/:id", h.Projects.Delete)
	}

	assignments := api.Group("/asignaciones", authn)
	{
		assignments.POST("", middleware.RBAC(roleAdmin), h.Assignments.Create)
		assignments.GET("", middleware.RBAC(roleAdmin), h.Assignments.List)
		assignments.GET("/mis-asignaciones", middleware.RBAC(roleEvaluator), h.Assignments.ListMineEvaluator)
		assignments.GET("/estudiante/mis-asignaciones", middleware.RBAC(roleStudent), h.Assignments.ListMineStudent)
		assignments.GET("/evaluador/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.Assignments.ListByEvaluator)
		assignments.GET("/estudiante/:id", middleware.RBAC(roleAdmin, roleEvaluator, roleStudent), h.Assignments.ListByStudent)
		assignments.GET("/proyecto/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.Assignments.ListByProject)
		assignments.GET("/:id", middleware.RBAC(roleAdmin, roleEvaluator, roleStudent), h.Assignments.Get)
		assignments.PUT("/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.Assignments.Update)
		assignments.PUT("/:id/completar", middleware.RBAC(roleEvaluator, roleAdmin), h.Assignments.Complete)
		assignments.DELETE("/:id", middleware.RBAC(roleAdmin), h.Assignments.Delete)
	}

	// Verification is open to anonymous callers; a valid token unlocks the
	// full certificate record.
	api.POST("/certificados/verificar", middleware.OptionalJWT(auth), h.Certificates.Verify)

	certificates := api.Group("/certificados", authn)
	{
		certificates.POST("", middleware.RBAC(roleAdmin, roleEvaluator), h.Certificates.Issue)
		certificates.GET("", middleware.RBAC(roleAdmin, roleEvaluator), h.Certificates.List)
		certificates.GET("/mis-certificados", middleware.RBAC(roleStudent), h.Certificates.ListMine)
		certificates.GET("/estudiante/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.Certificates.ListByStudent)
		certificates.GET("/evaluacion/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.Certificates.ListByEvaluation)
		certificates.GET("/estadisticas", middleware.RBAC(roleAdmin), h.Certificates.Statistics)
		certificates.GET("/:id", h.Certificates.Get)
		certificates.GET("/:id/pdf", h.Certificates.Download)
		certificates.PATCH("/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.Certificates.Update)
		certificates.PATCH("/:id/estado", middleware.RBAC(roleAdmin), h.Certificates.ChangeState)
		certificates.DELETE("/:id", middleware.RBAC(roleAdmin), h.Certificates.Delete)
	}

	cohorts := api.Group("/fichas", authn)
	{
		cohorts.POST("", middleware.RBAC(roleAdmin), h.Cohorts.Create)
		cohorts.GET("", h.Cohorts.List)
		cohorts.GET("/activas", h.Cohorts.ListActive)
		cohorts.GET("/estadisticas", middleware.RBAC(roleAdmin, roleEvaluator), h.Cohorts.Statistics)
		cohorts.GET("/numero/:numero", h.Cohorts.GetByNumber)
		cohorts.GET("/:id", h.Cohorts.Get)
		cohorts.PATCH("/:id", middleware.RBAC(roleAdmin), h.Cohorts.Update)
		cohorts.DELETE("/:id", middleware.RBAC(roleAdmin), h.Cohorts.Delete)
		cohorts.POST("/:id/instructores", middleware.RBAC(roleAdmin), h.Cohorts.AddInstructor)
		cohorts.DELETE("/:id/instructores/:usuarioId", middleware.RBAC(roleAdmin), h.Cohorts.RemoveInstructor)
		cohorts.POST("/:id/estudiantes", middleware.RBAC(roleAdmin, roleEvaluator), h.Cohorts.AddStudent)
		cohorts.DELETE("/:id/estudiantes/:usuarioId", middleware.RBAC(roleAdmin, roleEvaluator), h.Cohorts.RemoveStudent)
	}

	notifications := api.Group("/notificaciones", authn)
	{
		notifications.POST("", middleware.RBAC(roleAdmin), h.Notifications.Create)
		notifications.POST("/masiva", middleware.RBAC(roleAdmin), h.Notifications.SendMass)
		notifications.GET("", middleware.RBAC(roleAdmin), h.Notifications.ListAll)
		notifications.GET("/mis-notificaciones", h.Notifications.List)
		notifications.GET("/no-leidas", h.Notifications.ListUnread)
		notifications.GET("/recientes", h.Notifications.ListRecent)
		notifications.GET("/contador", h.Notifications.UnreadCount)
		notifications.PATCH("/:id/leida", h.Notifications.MarkRead)
		notifications.PATCH("/leidas", h.Notifications.MarkManyRead)
		notifications.PATCH("/leer-todas", h.Notifications.MarkAllRead)
		notifications.DELETE("/:id", middleware.RBAC(roleAdmin), h.Notifications.Delete)
		notifications.POST("/purgar", middleware.RBAC(roleAdmin), h.Notifications.Purge)
	}

	history := api.Group("/historial", authn)
	{
		history.GET("", middleware.RBAC(roleAdmin), h.History.List)
		history.GET("/mi-historial", h.History.ListMine)
		history.GET("/usuario/:id", middleware.RBAC(roleAdmin), h.History.ListByUser)
		history.GET("/proyecto/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.History.ListByProject)
		history.GET("/evaluacion/:id", middleware.RBAC(roleAdmin, roleEvaluator), h.History.ListByEvaluation)
		history.GET("/recientes", middleware.RBAC(roleAdmin), h.History.ListRecent)
		history.GET("/estadisticas", middleware.RBAC(roleAdmin), h.History.Statistics)
		history.POST("/purgar", middleware.RBAC(roleAdmin), h.History.Purge)
	}

	reports := api.Group("/reportes", authn, middleware.RBAC(roleAdmin))
	{
		reports.GET("/general", h.Reports.General)
		reports.GET("/evaluaciones", h.Reports.Evaluations)
		reports.GET("/general/exportar", h.Reports.ExportGeneral)
		reports.GET("/evaluaciones/exportar", h.Reports.ExportEvaluations)
	}

	api.GET("/metricas", authn, middleware.RBAC(roleAdmin), h.Metrics.Snapshot)
}
