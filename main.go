package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pitabwire/frame"
	"github.com/redis/go-redis/v9"

	"github.com/sokoflow/service-storefront/config"
	"github.com/sokoflow/service-storefront/service/business"
	"github.com/sokoflow/service-storefront/service/cache"
	"github.com/sokoflow/service-storefront/service/cart"
	"github.com/sokoflow/service-storefront/service/coreapi"
	"github.com/sokoflow/service-storefront/service/events"
	"github.com/sokoflow/service-storefront/service/handlers"
	"github.com/sokoflow/service-storefront/service/models"
	"github.com/sokoflow/service-storefront/service/router"
)

const orderEventsTopic = "order.events"

func main() {
	serviceName := "service_storefront"
	ctx := context.Background()

	storefrontConfig, err := frame.ConfigFromEnv[config.StorefrontConfig]()
	if err != nil {
		fmt.Printf("could not load config: %v\n", err)
	}
	ctx, service := frame.NewServiceWithContext(ctx, serviceName, frame.WithConfig(&storefrontConfig))

	logger := service.Log(ctx).WithField("type", "main")
	defer service.Stop(ctx)

	logger.Info("starting service...")
	serviceOptions := []frame.Option{frame.WithDatastore()}

	service.Init(ctx, serviceOptions...)

	if storefrontConfig.DoDatabaseMigrate() {
		err = service.MigrateDatastore(ctx, storefrontConfig.GetDatabaseMigrationPath(),
			&models.Product{}, &models.Order{}, &models.OrderItem{}, &models.OrderStatus{}, &models.PaymentRecord{})
		if err != nil {
			logger.WithError(err).Fatal("could not migrate successfully")
		}
		return
	}

	db := service.DB(ctx, false)
	if db == nil {
		logger.WithField("DATABASE_URL", os.Getenv("DATABASE_URL")).Fatal("database connection is nil - check DATABASE_URL and database availability")
		return
	}
	if err = db.AutoMigrate(&models.Product{}, &models.Order{}, &models.OrderItem{}, &models.OrderStatus{}, &models.PaymentRecord{}); err != nil {
		logger.WithError(err).Fatal("failed to auto-migrate database tables - cannot continue")
		return
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", storefrontConfig.RedisHost, storefrontConfig.RedisPort),
		Password: storefrontConfig.RedisPassword,
		DB:       storefrontConfig.RedisDatabase,
	})

	cartStore := cart.NewStore(redisClient, time.Duration(storefrontConfig.CartExpirySeconds)*time.Second)
	idempotencyStore := cache.NewRedisStore(redisClient)

	darajaClient := coreapi.New(
		storefrontConfig.MpesaBaseURL,
		storefrontConfig.MpesaConsumerKey,
		storefrontConfig.MpesaConsumerSecret,
		storefrontConfig.MpesaShortCode,
		storefrontConfig.MpesaPasskey,
		storefrontConfig.MpesaCallbackURL,
		time.Duration(storefrontConfig.MpesaTimeoutSeconds)*time.Second,
	)

	checkoutBusiness, err := business.NewCheckoutBusiness(ctx, service, darajaClient, cartStore, idempotencyStore, storefrontConfig.DefaultCurrency)
	if err != nil {
		logger.WithError(err).Fatal("could not setup checkout business")
	}
	catalogBusiness, err := business.NewCatalogBusiness(ctx, service)
	if err != nil {
		logger.WithError(err).Fatal("could not setup catalog business")
	}

	apiServer := &handlers.ApiServer{
		Service:  service,
		Emitter:  service,
		Checkout: checkoutBusiness,
		Catalog:  catalogBusiness,
		Carts:    cartStore,
	}

	serviceOptions = append(serviceOptions,
		frame.WithRegisterEvents(
			&events.OrderSave{Service: service},
			&events.OrderItemSave{Service: service},
			&events.OrderStatusSave{Service: service},
			&events.PaymentRecordSave{Service: service},
			&events.MpesaCallbackReceive{Service: service},
		),
		frame.WithHTTPHandler(router.NewRouter(apiServer)),
	)

	// Downstream consumers (realtime vendor dashboards) subscribe to order
	// events over NATS. Fall back to memory based pubsub so the service
	// still runs in development without a broker.
	raw := os.Getenv("NATS_URL")
	var natsURL string
	switch {
	case strings.HasPrefix(raw, "mem://"):
		natsURL = raw
	case raw == "":
		natsURL = "nats://nats:4222"
	case strings.HasPrefix(raw, "nats://"):
		natsURL = raw
	default:
		logger.Warn("NATS_URL missing 'nats://' prefix; assuming host:port format")
		natsURL = "nats://" + raw
	}

	connected := strings.HasPrefix(natsURL, "mem://")
	if !connected {
		maxRetries := 10
		for i := range maxRetries {
			logger.WithField("attempt", i+1).WithField("natsURL", natsURL).Info("attempting to connect to NATS")
			nc, connErr := nats.Connect(natsURL)
			if connErr != nil {
				logger.WithError(connErr).WithField("attempt", i+1).Warn("failed to connect to NATS, retrying after delay")
				time.Sleep(2 * time.Second)
				continue
			}
			nc.Close()
			connected = true
			break
		}
	}

	if connected && strings.HasPrefix(natsURL, "nats://") {
		publisherURL := natsURL
		if strings.Contains(publisherURL, "?") {
			publisherURL += "&subject=" + orderEventsTopic
		} else {
			publisherURL += "?subject=" + orderEventsTopic
		}
		logger.WithField("natsURL", publisherURL).WithField("topic", orderEventsTopic).Info("registering publisher with NATS")
		serviceOptions = append(serviceOptions, frame.WithRegisterPublisher(orderEventsTopic, publisherURL))
	} else {
		fallbackURL := "mem://" + orderEventsTopic
		logger.WithField("fallbackURL", fallbackURL).Warn("using memory-based pubsub for order events")
		serviceOptions = append(serviceOptions, frame.WithRegisterPublisher(orderEventsTopic, fallbackURL))
	}

	service.Init(ctx, serviceOptions...)

	logger.WithField("server http port", storefrontConfig.HTTPServerPort).
		Info("initiating server operations")

	err = service.Run(ctx, ":8080")
	if err != nil {
		logger.WithError(err).Fatal("could not run server")
	}
}
