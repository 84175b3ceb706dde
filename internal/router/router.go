// Package router assembles the Gin engine serving the invoicer API.
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"invoicer/internal/auth"
	_ "invoicer/internal/docs" // Register swagger docs
	apperrors "invoicer/internal/errors"
	"invoicer/internal/handlers"
	"invoicer/internal/middleware"
	"invoicer/internal/services"
)

// Deps are the collaborators the routes are served by.
type Deps struct {
	Mode     apperrors.Mode
	Tokens   *auth.TokenManager
	Users    services.UserServicer
	Invoices services.InvoiceServicer
	Audit    services.AuditServicer

	// CORSOrigins lists front-end origins allowed to call the API.
	CORSOrigins []string
	// Health reports whether backing services are reachable. Nil means healthy.
	Health func(ctx context.Context) error
}

// New builds the engine with every route registered.
func New(d Deps) *gin.Engine {
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, d.Audit)
	userHandler := handlers.NewUserHandler(d.Users, d.Audit)
	invoiceHandler := handlers.NewInvoiceHandler(d.Invoices, d.Audit)

	router := gin.New()
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler(d.Mode))
	router.Use(middleware.Recover())
	router.Use(middleware.CORS(d.CORSOrigins...))
	router.NoRoute(middleware.NotFound())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")

	// Health check endpoint
	api.GET("/health", health(d.Health))

	// Public routes
	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
	authRoutes.PATCH("/reset-password", authHandler.ResetPassword)

	requireUser := middleware.Authenticate(d.Tokens, d.Users)

	user := api.Group("/user")
	user.POST("/register", authHandler.Register)
	user.Use(requireUser)
	user.GET("/me", userHandler.Me)
	user.GET("/get-current-user", userHandler.Me)
	user.PATCH("/update-user", userHandler.UpdateUser)
	user.POST("/delete-user", userHandler.DeleteUser)
	user.POST("/upload-profile-image", userHandler.UploadProfileImage)
	user.POST("/delete-profile-image", userHandler.DeleteProfileImage)

	invoices := api.Group("/invoices", requireUser)
	invoices.GET("", invoiceHandler.ListInvoices)
	invoices.POST("", invoiceHandler.CreateInvoice)
	invoices.GET("/:id", invoiceHandler.GetInvoice)
	invoices.PATCH("/:id", invoiceHandler.UpdateInvoice)
	invoices.DELETE("/:id", invoiceHandler.DeleteInvoice)
	invoices.PATCH("/:id/markAsPaid", invoiceHandler.MarkAsPaid)
	invoices.POST("/:id/reminder", invoiceHandler.SendReminder)

	return router
}

func health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	}
}
