package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "factoryms/api/swagger" // swagger docs
	"factoryms/internal/database"
	"factoryms/internal/handler"
	"factoryms/internal/middleware"
	"factoryms/internal/notify"
	"factoryms/internal/repository"
	"factoryms/internal/service"
	"factoryms/internal/websocket"
)

// @title           Factory Management API
// @version         1.0
// @description     Requisition approval workflow API for factory operations.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "factoryms"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Permission middleware needs direct DB access for role lookups
	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	mailer := notify.NewMailerFromEnv()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	requisitionRepo := repository.NewRequisitionRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	reportRepo := repository.NewReportRepository(db)

	activityService := service.NewActivityService(activityRepo)
	userService := service.NewUserService(userRepo, activityService)
	requisitionService := service.NewRequisitionService(requisitionRepo, userRepo, txManager, activityService, wsHub, mailer)
	departmentService := service.NewDepartmentService(departmentRepo, activityService)
	catalogService := service.NewCatalogService(catalogRepo)
	roleService := service.NewRoleService(roleRepo)
	reportService := service.NewReportService(reportRepo, requisitionRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	requisitionHandler := handler.NewRequisitionHandler(requisitionService)
	departmentHandler := handler.NewDepartmentHandler(departmentService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	activityHandler := handler.NewActivityHandler(activityService)
	roleHandler := handler.NewRoleHandler(roleService)
	reportHandler := handler.NewReportHandler(reportService, activityService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	api := router.Group("/api")
	userHandler.RegisterRoutes(api)
	requisitionHandler.RegisterRoutes(api)
	departmentHandler.RegisterRoutes(api)
	catalogHandler.RegisterRoutes(api)
	activityHandler.RegisterRoutes(api)
	roleHandler.RegisterRoutes(api)
	reportHandler.RegisterRoutes(api)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
