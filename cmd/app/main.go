package main

import (
	"context"
	"log"
	"os"

	"echezona/cmd/fx/db_fx"
	"echezona/cmd/fx/gateway_fx"
	"echezona/internal/api/controllers"
	"echezona/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	app := fx.New(
		db_fx.Module,
		gateway_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Println("Starting HTTP server at ${PORT}")
				if err := engine.Run(":" + os.Getenv("PORT")); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	paymentController *controllers.PaymentController,
	reconcileController *controllers.ReconcileController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, paymentController, reconcileController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	paymentController *controllers.PaymentController,
	reconcileController *controllers.ReconcileController) {

	payments := r.Group("/payments")

	// Reached by the shopper's browser and the processor; no host auth.
	payments.GET("/callback", reconcileController.HandleCallback)
	payments.POST("/webhook", reconcileController.HandleWebhook)
	payments.GET("/availability", paymentController.Availability)

	// Host-platform calls only.
	hostOnly := payments.Group("")
	hostOnly.Use(middleware.JWTAuthMiddleware())
	hostOnly.POST("/checkout", paymentController.CreateCheckout)
	hostOnly.POST("/refund", paymentController.CreateRefund)
}
