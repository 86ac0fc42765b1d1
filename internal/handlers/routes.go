package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/metrics"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/utils"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	Tokens      *utils.Tokens
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	CORSOrigins []string
}

// NewRouter wires every route with its middleware chain.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(opts.Logger), middleware.Recovery())
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", h.Healthz)

	// Public routes
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterCustomer)
		auth.POST("/registrations", h.SubmitRegistration)
	}

	// Protected routes
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(opts.Tokens, h.Store))

	staffOnly := middleware.RequireRole(models.RoleStaff, models.RoleAdmin)
	clinicians := middleware.RequireRole(models.RoleDoctor, models.RoleAdmin)
	clinicStaff := middleware.RequireRole(models.RoleDoctor, models.RoleStaff, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api.GET("/me", h.GetCurrentUser)
	api.PUT("/me", h.UpdateCurrentUser)

	customers := api.Group("/customers")
	{
		customers.GET("", clinicians, h.GetCustomers)
		customers.GET("/stats", clinicians, h.GetCustomerStats)
		customers.GET("/export", clinicians, h.ExportCustomers)
		customers.GET("/:id", h.GetCustomer)
		customers.PUT("/:id", h.UpdateCustomer)
	}

	api.GET("/doctors", h.GetDoctors)

	registrations := api.Group("/registrations", adminOnly)
	{
		registrations.GET("", h.GetRegistrations)
		registrations.GET("/:id", h.GetRegistration)
		registrations.POST("/:id/approve", h.ApproveRegistration)
		registrations.POST("/:id/reject", h.RejectRegistration)
	}

	users := api.Group("/users", adminOnly)
	{
		users.GET("", h.GetUsers)
		users.PATCH("/:id/status", h.SetUserStatus)
		users.DELETE("/:id", h.DeleteUser)
	}

	appointments := api.Group("/appointments")
	{
		appointments.GET("", h.GetAppointments)
		appointments.POST("", h.CreateAppointment)
		appointments.PUT("/:id", clinicStaff, h.UpdateAppointment)
		appointments.PATCH("/:id/cancel", h.CancelAppointment)
	}

	ambulance := api.Group("/ambulance-requests")
	{
		ambulance.GET("", h.GetAmbulanceRequests)
		ambulance.POST("", middleware.RequireRole(models.RoleCustomer), h.CreateAmbulanceRequest)
		ambulance.PATCH("/:id/status", staffOnly, h.SetAmbulanceStatus)
	}

	complaints := api.Group("/complaints")
	{
		complaints.GET("", h.GetComplaints)
		complaints.POST("", middleware.RequireRole(models.RoleCustomer), h.CreateComplaint)
		complaints.GET("/:id/feedback", h.GetComplaintFeedback)
		complaints.POST("/:id/feedback", staffOnly, h.AddComplaintFeedback)
	}

	return router
}
