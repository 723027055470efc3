// Package routes defines the API routing configuration.
// It wires repositories, services and handlers together and groups the
// routes by required privilege.
package routes

import (
	"cardvault/internal/cardcrypto"
	"cardvault/internal/config"
	"cardvault/internal/handlers"
	"cardvault/internal/middleware"
	"cardvault/internal/repositories"
	"cardvault/internal/services/auth"
	"cardvault/internal/services/card"
	"cardvault/internal/services/transfer"
	"cardvault/internal/services/user"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes. It returns the card
// service so the caller can run the periodic expiry sweep against it.
func SetupRoutes(app *fiber.App) (card.Service, error) {
	// Repositories
	userRepo := repositories.NewUserRepository(repositories.DB, repositories.CacheService)
	cardRepo := repositories.NewCardRepository(repositories.DB)
	transferRepo := repositories.NewTransferRepository(repositories.DB)

	// Card number encryption key comes from the environment; refuse to
	// start without a usable one.
	key, err := config.EncryptionKey()
	if err != nil {
		return nil, err
	}
	cipher, err := cardcrypto.NewCipher(key)
	if err != nil {
		return nil, err
	}

	// Services
	authService := auth.NewService(userRepo)
	userService := user.NewService(userRepo)
	cardService := card.NewService(cardRepo, userRepo, cipher, repositories.CacheService)
	transferService := transfer.NewService(cardRepo, transferRepo, repositories.CacheService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	cardHandler := handlers.NewCardHandler(cardService)
	transferHandler := handlers.NewTransferHandler(transferService)

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api")

	// Public endpoints
	api.Post("/register", userHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Post("/refresh", authHandler.Refresh)

	// Everything below requires a valid token.
	authMiddleware := middleware.NewAuthMiddleware(authService)
	protected := api.Use(authMiddleware.Handler)

	protected.Get("/me", userHandler.Me)
	protected.Post("/logout", authHandler.Logout)
	protected.Post("/change-password", authHandler.ChangePassword)

	// Cardholder routes
	cards := protected.Group("/cards")
	cards.Get("/", cardHandler.List)
	cards.Get("/:id", cardHandler.Get)
	cards.Get("/:id/balance", cardHandler.GetBalance)
	cards.Post("/:id/request-block", cardHandler.RequestBlock)
	cards.Get("/:id/transfers", transferHandler.History)

	protected.Post("/transfers", transferHandler.Create)

	// Admin routes
	admin := protected.Group("/admin", middleware.AdminOnly)
	admin.Post("/cards", cardHandler.Create)
	admin.Get("/cards", cardHandler.ListAll)
	admin.Put("/cards/:id", cardHandler.Update)
	admin.Delete("/cards/:id", cardHandler.Delete)
	admin.Post("/cards/:id/block", cardHandler.Block)
	admin.Post("/cards/:id/activate", cardHandler.Activate)
	admin.Get("/users", userHandler.List)
	admin.Get("/users/:id", userHandler.Get)
	admin.Delete("/users/:id", userHandler.Delete)

	return cardService, nil
}
