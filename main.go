package main

import (
	"log"

	"github.com/SoftwareDeveloper2002/iskolardev-node/config"
	"github.com/SoftwareDeveloper2002/iskolardev-node/routes"
	"github.com/SoftwareDeveloper2002/iskolardev-node/services"
	"github.com/SoftwareDeveloper2002/iskolardev-node/storage"
	"github.com/SoftwareDeveloper2002/iskolardev-node/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func main() {
	cfg := config.Load()

	db := storage.InitializeDB(cfg)
	if err := storage.Ping(db); err != nil {
		log.Fatalf("database not ready: %v", err)
	}
	redisClient := storage.InitializeRedis(cfg)

	verifier, err := services.NewFirebaseVerifier(cfg)
	if err != nil {
		log.Fatalf("could not load identity provider JWKS: %v", err)
	}

	users := storage.NewUsers(db)
	payments := storage.NewPayments(db)

	gateway := services.NewGateway(verifier, users)
	provider := services.NewPayMongo(cfg)
	intents := services.NewIntents(provider, payments)
	webhooks := services.NewWebhooks(payments, redisClient)

	authRoutes := routes.NewAuth(gateway)
	paymentRoutes := routes.NewPayments(intents, webhooks, gateway)

	app := iris.New()
	app.Validator = validator.New()

	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(utils.CORS)
	app.UseRouter(utils.MaintenanceMiddleware(cfg.MaintenanceMode))

	app.Get("/", func(ctx iris.Context) {
		ctx.WriteString("There is nothing to see here.")
	})

	auth := app.Party("/auth")
	{
		auth.Post("/verify", authRoutes.Verify)
		auth.Post("/login", authRoutes.Login)
	}

	paymongo := app.Party("/paymongo")
	{
		paymongo.Post("/{paymentType:string}/intent", paymentRoutes.CreateIntent)
		paymongo.Post("/{paymentType:string}/webhook", paymentRoutes.Webhook)
	}

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
