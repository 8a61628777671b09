package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faaskit/internal/authorizer"
	"faaskit/internal/blob"
	"faaskit/internal/conf"
	"faaskit/internal/config"
	"faaskit/internal/gateway"
	"faaskit/internal/handlers"
	"faaskit/pkg/lambda"
	"faaskit/pkg/middleware"
	"faaskit/pkg/pubsub"
	"faaskit/pkg/saga"
	"faaskit/pkg/store"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// devSNS satisfies pubsub.SNSAPI by logging publishes instead of calling
// AWS, so the dev server runs without credentials.
type devSNS struct {
	logger *logrus.Logger
}

func (d *devSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	fields := logrus.Fields{}
	if params.TopicArn != nil {
		fields["topic"] = *params.TopicArn
	}
	if params.Message != nil {
		fields["message"] = *params.Message
	}
	d.logger.WithFields(fields).Info("Published message (dev)")
	return &sns.PublishOutput{}, nil
}

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// NAMESPACE is read by the handler chains via the environ primitives.
	os.Setenv(middleware.NamespaceVar, cfg.Namespace)

	st, err := store.New(&store.Config{
		Backend:        cfg.Store.Backend,
		SQLitePath:     cfg.Store.SQLitePath,
		MigrationsPath: cfg.Store.MigrationsPath,
		Logger:         logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize item store")
	}
	defer st.Close()

	storage, err := blob.New(&blob.Config{Type: cfg.Blob.Type, BasePath: cfg.Blob.LocalPath}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize blob storage")
	}
	defer storage.Close()

	engine, err := saga.NewEngine(handlers.OrderWorkflow(), st, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize workflow engine")
	}

	auth := authorizer.New(&authorizer.Config{
		Secret:        cfg.JWT.Secret,
		TokenDuration: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
	}, logger)

	helloChain := handlers.NewHelloChain(&handlers.HelloDeps{
		Env:         middleware.EnvFromOS(),
		ConfClient:  conf.NewClient(storage, cfg.Namespace, time.Duration(cfg.Blob.ConfTTLSecs)*time.Second, logger),
		CORSPattern: cfg.CORSPattern,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.Throttle.RequestsPerSecond), cfg.Throttle.Burst),
		Logger:      logger,
	})

	workflowTopic := "order-transitions"
	workflowChain := handlers.NewWorkflowChain(&handlers.WorkflowDeps{
		Env:    middleware.EnvFromOS(),
		Engine: engine,
		Conn:   pubsub.Connect(&devSNS{logger: logger}, "local", "000000000000", cfg.Namespace),
		Topic:  workflowTopic,
		Logger: logger,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gateway.RequestID())
	router.Use(gateway.StructuredLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})

	v1 := router.Group("/api/v1")
	{
		// Mint dev tokens so the authorizer-protected routes are usable
		// locally.
		v1.POST("/token", func(c *gin.Context) {
			var req struct {
				Sub    string   `json:"sub" binding:"required"`
				Domain string   `json:"domain"`
				Scopes []string `json:"scopes"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			token, err := auth.GenerateToken(req.Sub, req.Domain, req.Scopes)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})

		v1.GET("/hello", func(c *gin.Context) {
			claims, err := auth.Authorize(c.GetHeader("Authorization"))
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			invoke(c, helloChain, proxyRequest(c, claims))
		})

		// Emulates the SNS trigger: wraps the transition in a notification
		// record and invokes the workflow chain.
		v1.POST("/workflows/:saga/transitions/:transition", func(c *gin.Context) {
			message, _ := json.Marshal(map[string]string{
				"saga":       c.Param("saga"),
				"transition": c.Param("transition"),
			})
			event := lambda.FromSNS(events.SNSEvent{
				Records: []events.SNSEventRecord{{
					SNS: events.SNSEntity{
						TopicArn: fmt.Sprintf("arn:aws:sns:local:000000000000:%s-%s", cfg.Namespace, workflowTopic),
						Message:  string(message),
					},
				}},
			})
			if _, err := workflowChain(c.Request.Context(), event, nil); err != nil {
				logger.WithError(err).Error("Workflow invocation failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Workflow invocation failed"})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}
}

// proxyRequest converts a gin request plus authorizer claims into the event
// shape a deployed function receives.
func proxyRequest(c *gin.Context, claims map[string]interface{}) *lambda.Event {
	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.GetHeader(k)
	}
	query := map[string]string{}
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	path := map[string]string{}
	for _, p := range c.Params {
		path[p.Key] = p.Value
	}

	return lambda.FromAPIGateway(events.APIGatewayProxyRequest{
		Headers:               headers,
		QueryStringParameters: query,
		PathParameters:        path,
		RequestContext: events.APIGatewayProxyRequestContext{
			Authorizer: claims,
		},
	})
}

// invoke runs a chain and writes its envelope back as the HTTP response.
func invoke(c *gin.Context, h lambda.Handler, event *lambda.Event) {
	result, err := h(c.Request.Context(), event, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	env, ok := result.(*lambda.Envelope)
	if !ok {
		body, encErr := lambda.EncodeBody(result)
		if encErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		env = &lambda.Envelope{StatusCode: http.StatusOK, Body: body}
	}

	for k, v := range env.Headers {
		c.Header(k, v)
	}
	c.Data(env.StatusCode, "application/json", []byte(env.Body))
}
