package main

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/quickbite/storefront/app/cart"
	"github.com/quickbite/storefront/app/catalog"
	"github.com/quickbite/storefront/app/categories"
	"github.com/quickbite/storefront/app/checkout"
	"github.com/quickbite/storefront/app/orders"
	"github.com/quickbite/storefront/config"
	"github.com/quickbite/storefront/models"
	"github.com/quickbite/storefront/session"
	"github.com/quickbite/storefront/vnpay"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Variant{},
		&models.User{},
		&models.Cart{},
		&models.CartDetail{},
		&models.Order{},
		&models.OrderDetail{},
	); err != nil {
		log.Fatal("failed to migrate schema", zap.Error(err))
	}

	store := session.NewRedisStore(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}), cfg.SessionTTL)

	catalogRepo := models.NewCatalogRepository(db)
	usersRepo := models.NewUsersRepository(db)
	cartsRepo := models.NewCartsRepository(db, usersRepo)
	ordersRepo := models.NewOrdersRepository(db)

	gateway := vnpay.New(vnpay.Config{
		TmnCode:    cfg.VNPayTmnCode,
		HashSecret: cfg.VNPayHashSecret,
		BaseURL:    cfg.VNPayURL,
	})

	checkoutSvc := checkout.NewService(ordersRepo, gateway, cfg.StagedCheckoutTTL, log)

	catalogHandler := catalog.NewCatalogHandler(catalogRepo)
	categoryHandler := categories.NewCategoryHandler(catalogRepo)
	cartHandler := cart.NewCartHandler(cartsRepo, store, func(sess *session.Session) cart.AnonCart {
		return session.NewCart(sess, catalogRepo)
	})
	checkoutHandler := checkout.NewHandler(checkoutSvc, store, usersRepo,
		func(userID uint) checkout.CartSource {
			return checkout.NewUserCartSource(cartsRepo, userID)
		},
		func(sess *session.Session) checkout.CartSource {
			return checkout.NewAnonCartSource(session.NewCart(sess, catalogRepo))
		},
	)
	orderHandler := orders.NewOrderHandler(ordersRepo)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /catalog", catalogHandler.HandleGet)
	mux.HandleFunc("GET /catalog/{id}", catalogHandler.HandleGetProduct)
	mux.HandleFunc("GET /api/products/{id}/variants", catalogHandler.HandleGetVariants)
	mux.HandleFunc("POST /api/admin/products/{id}/variants", catalogHandler.HandleUpsertVariant)
	mux.HandleFunc("GET /categories", categoryHandler.HandleGetAll)
	mux.HandleFunc("POST /categories", categoryHandler.HandleCreate)

	mux.HandleFunc("GET /api/cart", cartHandler.HandleGet)
	mux.HandleFunc("POST /api/cart/add", cartHandler.HandleAdd)
	mux.HandleFunc("GET /api/cart/count", cartHandler.HandleCount)
	mux.HandleFunc("POST /api/cart/update-quantity/{id}", cartHandler.HandleUpdateQuantity)
	mux.HandleFunc("POST /api/cart/remove", cartHandler.HandleRemove)

	mux.HandleFunc("GET /checkout", checkoutHandler.HandleGetCheckout)
	mux.HandleFunc("POST /place-order", checkoutHandler.HandlePlaceOrder)
	mux.HandleFunc("GET /payment-return", checkoutHandler.HandlePaymentReturn)

	mux.HandleFunc("GET /api/orders", orderHandler.HandleHistory)
	mux.HandleFunc("GET /api/admin/orders", orderHandler.HandleList)
	mux.HandleFunc("GET /api/admin/orders/{id}", orderHandler.HandleGet)
	mux.HandleFunc("POST /api/admin/orders/{id}/status", orderHandler.HandleUpdateStatus)
	mux.HandleFunc("POST /api/admin/orders/{id}/paid", orderHandler.HandleMarkPaid)

	log.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
