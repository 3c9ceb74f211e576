package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnilogix/freight-bridge/internal/cargowise"
	"github.com/omnilogix/freight-bridge/internal/config"
	"github.com/omnilogix/freight-bridge/internal/docapi"
	httpAPI "github.com/omnilogix/freight-bridge/internal/http"
	"github.com/omnilogix/freight-bridge/internal/http/controller"
	"github.com/omnilogix/freight-bridge/internal/ledger"
	"github.com/omnilogix/freight-bridge/internal/logger"
	"github.com/omnilogix/freight-bridge/internal/metrics"
	"github.com/omnilogix/freight-bridge/internal/notify"
	"github.com/omnilogix/freight-bridge/internal/pipeline"
	"github.com/omnilogix/freight-bridge/internal/refstore"
	s3pkg "github.com/omnilogix/freight-bridge/internal/s3"
	sqspkg "github.com/omnilogix/freight-bridge/internal/sqs"
	"github.com/omnilogix/freight-bridge/internal/worldtrak"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.Init(conf.DebugMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := refstore.StartDB(ctx, conf.Database)
	handleErr("starting database", err)

	refs := refstore.New(db, conf.Pipeline.CustomerAllowList...)
	ldg := ledger.New(db)
	docStore := ledger.NewDocumentStore(db)

	// AWS clients (SQS consumers/publishers, SNS alerts, S3 booking files)
	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("creating SQS client", err)
	snsClient, err := notify.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("creating SNS client", err)
	s3Client, err := s3pkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("creating S3 client", err)

	alerter := notify.NewNotifier(snsClient, conf.AWS.AlertTopicARN)
	cwClient := cargowise.NewClient(conf.CargoWise)
	wtClient := worldtrak.NewClient(conf.WorldTrak)
	docClient := docapi.NewClient(conf.DocumentAPI)
	fetcher := s3pkg.NewFetcher(s3Client)

	// Change-stream pipelines
	orchestrator := pipeline.NewOrchestrator(ldg, alerter)
	orchestrator.Register(conf.Pipeline.SourceTables.Milestone, pipeline.NewMilestoneStrategy(refs, ldg, cwClient))
	orchestrator.Register(conf.Pipeline.SourceTables.AparFailure, pipeline.NewDelayStrategy(refs, ldg, cwClient))
	orchestrator.Register(conf.Pipeline.SourceTables.Cost, pipeline.NewCostStrategy(refs, ldg, cwClient))

	docProcessor := pipeline.NewDocumentProcessor(refs, docStore)
	dispatcher := pipeline.NewDispatcher(orchestrator, docProcessor, conf.Pipeline.SourceTables.Document)

	// Shipment registration from booking files
	shipmentProcessor := pipeline.NewShipmentProcessor(fetcher, ldg, alerter, wtClient, cwClient, pipeline.RegistrationConfig{
		CustomerNo: conf.Pipeline.RegistrationCustomerNo,
		Station:    conf.Pipeline.RegistrationStation,
		Username:   conf.WorldTrak.Username,
		Password:   conf.WorldTrak.Password,
	})

	// Retry promotion and resubmission
	retryPublisher := sqspkg.NewPublisher(sqsClient, conf.AWS.RetryQueueURL)
	retryKinds := []string{pipeline.KindMilestone, pipeline.KindDelay, pipeline.KindCost}
	promoter := pipeline.NewRetryPromoter(ldg, retryPublisher, retryKinds, conf.Pipeline.RetryPromotionThreshold, time.Minute)
	retryHandler := pipeline.NewRetryHandler(ldg, cwClient, alerter)

	// Document readiness checking and delivery
	docChecker := pipeline.NewDocumentChecker(refs, docStore, alerter)
	docSender := pipeline.NewDocumentSender(refs, docStore, docClient, cwClient, alerter)
	docWorker := pipeline.NewDocumentWorker(docChecker, docSender, time.Minute)

	startConsumer(ctx, "stream", sqspkg.NewConsumer(sqsClient, conf.AWS.StreamQueueURL, dispatcher.Handle))
	startConsumer(ctx, "shipment", sqspkg.NewConsumer(sqsClient, conf.AWS.ShipmentQueueURL, shipmentProcessor.Handle))
	startConsumer(ctx, "retry", sqspkg.NewConsumer(sqsClient, conf.AWS.RetryQueueURL, retryHandler.Handle))
	go promoter.Run(ctx)
	go docWorker.Run(ctx)

	// Operations API
	ctr := controller.New()
	attemptCtr := controller.NewAttemptController(ldg, retryPublisher)
	refCtr := controller.NewReferenceController(refs)
	httpServer := gin.Default()
	httpServer = httpAPI.InitRouter(conf, httpServer, ctr, attemptCtr, refCtr)

	go func() {
		if err := httpServer.Run(":" + conf.OpsServer.Port); err != nil {
			handleErr("listening to HTTP requests", err)
		}
	}()

	metrics.StartMetricsServer(conf)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down gracefully...")
	cancel()
}

func startConsumer(ctx context.Context, name string, consumer *sqspkg.Consumer) {
	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("%s consumer error: %v", name, err)
		}
	}()
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
