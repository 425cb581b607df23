package main

import (
	"context"
	"log"

	"github.com/pot-code/learning-service/internal/catalogue"
	infra "github.com/pot-code/learning-service/internal/infrastructure"
	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/infrastructure/logging"
	"github.com/pot-code/learning-service/internal/infrastructure/migrate"
	"github.com/pot-code/learning-service/internal/infrastructure/uuid"
	"github.com/pot-code/learning-service/internal/interfaces/rest"
	"github.com/pot-code/learning-service/internal/lesson"
	"github.com/pot-code/learning-service/internal/record"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}
	location, err := option.Location()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	defer logger.Sync()

	dbConn, err := driver.GetDBConnection(&driver.DBConfig{
		User:     option.Database.User,
		Password: option.Database.Password,
		MaxConn:  option.Database.MaxConn,
		Protocol: option.Database.Protocol,
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		Port:     option.Database.Port,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
	})
	if err != nil {
		logger.Fatal("Failed to create DB connection", zap.Error(err))
	}
	defer dbConn.Close(context.Background())
	logger.Debug("Create DB connection instance", zap.String("db.driver", option.Database.Driver),
		zap.String("db.schema", option.Database.Schema),
		zap.String("db.host", option.Database.Host),
	)
	if option.Database.Migrate {
		if err := migrate.Migrate(context.Background(), dbConn, option.Database.Driver); err != nil {
			logger.Fatal("Failed to migrate schema", zap.Error(err))
		}
		logger.Info("Schema migrated", zap.String("db.driver", option.Database.Driver))
	}

	var kv driver.KeyValueDB
	if option.KVStore.Host != "" {
		rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)
		defer rdb.Close()
		if err := rdb.Ping(); err != nil {
			logger.Fatal("Failed to connect kv store", zap.Error(err))
		}
		kv = rdb
	} else {
		logger.Warn("No kv host configured, caching in process")
		kv = driver.NewMemoryKV()
	}

	Gateway := catalogue.NewCachedGateway(
		catalogue.NewHTTPClient(option.Catalogue.BaseURL, option.Catalogue.Timeout),
		kv, option.Catalogue.CacheTTL)
	Transactor := driver.NewTransactor(dbConn, nil)
	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength)

	LessonRepo := lesson.NewLessonRepository(dbConn)
	RecordRepo := record.NewRecordRepository(dbConn)
	LessonUseCase := lesson.NewLessonUseCase(LessonRepo, RecordRepo, Gateway, Transactor, UUIDGenerator, location)
	RecordUseCase := record.NewRecordUseCase(RecordRepo, LessonRepo, Gateway, Transactor, UUIDGenerator,
		option.Learning.RefreshFinishedPosition)

	logger.Info("Starting server", zap.String("host", option.Host), zap.Int("port", option.Port))
	if err := rest.Serve(dbConn, kv, option, LessonUseCase, RecordUseCase, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
