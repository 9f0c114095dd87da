package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/1800agents/saki/cmd/sakid/handlers"
	"github.com/1800agents/saki/pkg/cluster"
	"github.com/1800agents/saki/pkg/configs/controlplane"
	k8sstore "github.com/1800agents/saki/pkg/domain/apps/k8s"
	"github.com/1800agents/saki/pkg/domain/apps/logs"
	"github.com/1800agents/saki/pkg/domain/apps/service"
	"github.com/1800agents/saki/pkg/domain/auth"
	"github.com/1800agents/saki/pkg/domain/schema/db/postgres"
	"github.com/1800agents/saki/pkg/utils/echoutil"
	"github.com/1800agents/saki/pkg/utils/filewatch"
	"github.com/1800agents/saki/pkg/utils/kubeutil"
)

func main() {

	configPath := flag.String("config-path", "", "control plane config path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	e := echo.New()

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	// read configfile
	conf, err := controlplane.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}

	{
		// quit on config change; the process supervisor restarts us
		// with the new config.
		ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), *configPath)
		if err != nil {
			log.Fatalf("can not watch configuration: %s", err)
		}
		defer cancel()
		context.AfterFunc(ctx, func() {
			log.Println("config file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by config update: %s", err)
			}
		})
	}

	clientset, err := kubeutil.ConnectToK8s(conf.Cluster().Kubeconfig())
	if err != nil {
		log.Fatalf("can not connect to kubernetes: %s", err)
	}
	cl := cluster.AttachCluster(cluster.WrapK8sClient(clientset), conf.Cluster().Namespace())

	ctx := context.Background()
	pool, err := pgxpool.Connect(ctx, conf.Database())
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer pool.Close()

	svc := service.New(
		k8sstore.New(cl),
		logs.New(cl),
		postgres.FromPool(pool),
		service.Config{
			BaseDomain:   conf.Apps().BaseDomain(),
			RegistryHost: conf.Apps().RegistryHost(),
			DatabaseURL:  conf.Database(),
			TTL:          conf.Apps().TTL(),
			PushWindow:   conf.Apps().PushWindow(),
		},
	)
	verifier := auth.New(conf.Session().SigningKey(), conf.Session().Admins())

	// handlers
	{
		api := e.Group("/api", handlers.WithSession(verifier))
		name := "name"

		api.POST("/apps/prepare", handlers.PreparePushHandler(svc))

		api.POST("/apps", handlers.DeployAppHandler(svc))
		api.GET("/apps", handlers.ListAppsHandler(svc))

		api.GET("/apps/:name", handlers.GetAppHandler(svc, name))
		api.DELETE("/apps/:name", handlers.DeleteAppHandler(svc, name))

		api.POST("/apps/:name/stop", handlers.StopAppHandler(svc, name))
		api.POST("/apps/:name/start", handlers.StartAppHandler(svc, name))

		api.GET("/apps/:name/logs", handlers.GetLogsHandler(svc, name))
	}

	log.Println("registered routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", conf.Port())))
}
