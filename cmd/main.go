package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"tax-interview-agent/handler"
	"tax-interview-agent/internal/catalog"
	"tax-interview-agent/internal/integrations/paramstore"
	"tax-interview-agent/internal/integrations/taxengine"
	"tax-interview-agent/internal/repository"
	"tax-interview-agent/internal/session"
	"tax-interview-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	sessionTTL := envInt("SESSION_TTL_MINUTES", 30)
	answerStore := os.Getenv("ANSWER_STORE") // "dynamodb" (default) or "paramstore"

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	records, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create answer record client", "err", err)
		os.Exit(1)
	}

	var saver usecase.Saver = records
	if answerStore == "paramstore" {
		saver, err = paramstore.NewAnswerStore(ssmClient, paramPrefix)
		if err != nil {
			slog.Error("failed to create parameter answer store", "err", err)
			os.Exit(1)
		}
	}

	engine, err := taxengine.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create tax engine client", "err", err)
		os.Exit(1)
	}

	// ---- Catalogs ----
	interviewCatalog, err := catalog.Interview()
	if err != nil {
		slog.Error("invalid interview catalog", "err", err)
		os.Exit(1)
	}
	formCatalog, err := catalog.Form()
	if err != nil {
		slog.Error("invalid form catalog", "err", err)
		os.Exit(1)
	}

	// ---- Services ----
	// Each questionnaire keeps its own session store so one identity can
	// work through both flows independently.
	ttl := time.Duration(sessionTTL) * time.Minute
	interviewSvc, err := usecase.NewTurnService(interviewCatalog, session.NewStore(ttl), saver, usecase.PurposeInterview)
	if err != nil {
		slog.Error("failed to create interview service", "err", err)
		os.Exit(1)
	}
	formSvc, err := usecase.NewTurnService(formCatalog, session.NewStore(ttl), saver, usecase.PurposeForm)
	if err != nil {
		slog.Error("failed to create form service", "err", err)
		os.Exit(1)
	}
	calcSvc, err := usecase.NewCalcService(records, engine)
	if err != nil {
		slog.Error("failed to create calc service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(interviewSvc, formSvc, calcSvc)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
