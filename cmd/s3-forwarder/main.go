package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/omnilogix/freight-bridge/internal/config"
	"github.com/omnilogix/freight-bridge/internal/logger"
	"github.com/omnilogix/freight-bridge/internal/pipeline"
	sqspkg "github.com/omnilogix/freight-bridge/internal/sqs"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.Init(conf.DebugMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("creating SQS client", err)

	publisher := sqspkg.NewPublisher(sqsClient, conf.AWS.ShipmentQueueURL)
	forwarder := pipeline.NewS3Forwarder(publisher)
	consumer := sqspkg.NewConsumer(sqsClient, conf.AWS.S3EventQueueURL, forwarder.Handle)

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Consumer error: %v", err)
		}
	}()

	log.Println("S3 forwarder started. Listening for notifications...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down gracefully...")
	cancel()
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
