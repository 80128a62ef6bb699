package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"churnpredict/config"
	"churnpredict/db"
	"churnpredict/logging"
	"churnpredict/ml"
	"churnpredict/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dataPath := flag.String("data", "", "training CSV in Churn_Modelling layout")
	modelPath := flag.String("model_path", "", "model output path (default from config)")
	transformerPath := flag.String("transformer_path", "", "transformer output path (default from config)")
	maxDepth := flag.Int("max_depth", 0, "max tree depth (default from config)")
	testRatio := flag.Float64("test_ratio", 0, "held-out ratio (default from config)")
	seed := flag.Int64("seed", 0, "shuffle seed (default from config)")
	threshold := flag.Float64("threshold", 0, "pin the CreditScoreCategory threshold; 0 uses the training mean")
	pinDefault := flag.Bool("pin_default_threshold", false, fmt.Sprintf("pin the threshold to %v", pipeline.DefaultCreditScoreThreshold))
	record := flag.Bool("record", true, "append metrics to the training log in the database")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Log.Format = "console"
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if *modelPath != "" {
		cfg.ML.ModelPath = *modelPath
	}
	if *transformerPath != "" {
		cfg.ML.TransformerPath = *transformerPath
	}
	if *maxDepth > 0 {
		cfg.ML.MaxTreeDepth = *maxDepth
	}
	if *testRatio > 0 {
		cfg.ML.TestRatio = *testRatio
	}
	if *seed != 0 {
		cfg.ML.Seed = *seed
	}
	switch {
	case *threshold > 0:
		cfg.ML.CreditScoreThreshold = *threshold
	case *pinDefault:
		cfg.ML.CreditScoreThreshold = pipeline.DefaultCreditScoreThreshold
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid settings", zap.Error(err))
	}

	rows, err := readRows(*dataPath)
	if err != nil {
		logger.Fatal("failed to read training data", zap.String("path", *dataPath), zap.Error(err))
	}
	logger.Info("training data loaded", zap.Int("rows", len(rows)))

	result, err := ml.Train(rows, cfg.Training())
	if err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
	logger.Info("model evaluated",
		zap.Int("train", result.TrainSize),
		zap.Int("test", result.TestSize),
		zap.Float64("accuracy", result.Metrics.Accuracy),
		zap.Float64("precision", result.Metrics.Precision),
		zap.Float64("recall", result.Metrics.Recall),
		zap.Int("classifier_errors", result.Metrics.Errors),
		zap.Float64("credit_score_threshold", result.Transformer.Threshold()),
	)

	for _, path := range []string{cfg.ML.ModelPath, cfg.ML.TransformerPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			logger.Fatal("failed to create artifact dir", zap.String("path", path), zap.Error(err))
		}
	}
	if err := result.Transformer.Save(cfg.ML.TransformerPath); err != nil {
		logger.Fatal("failed to save transformer", zap.Error(err))
	}
	if err := result.Model.Save(cfg.ML.ModelPath); err != nil {
		logger.Fatal("failed to save model", zap.Error(err))
	}

	if *record && cfg.Database.Path != "" {
		if err := recordTraining(cfg.Database.Path, cfg.ML.ModelType, result); err != nil {
			logger.Warn("failed to record training run", zap.Error(err))
		}
	}

	fmt.Printf("model saved to %s\ntransformer saved to %s\n", cfg.ML.ModelPath, cfg.ML.TransformerPath)
}

func readRows(path string) ([]pipeline.TrainingRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return pipeline.ReadTrainingCSV(file, pipeline.NewValidator())
}

func recordTraining(dbPath, modelType string, result *ml.TrainingResult) error {
	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveTrainingLog(context.Background(), db.TrainingLog{
		ModelName:  modelType,
		Accuracy:   result.Metrics.Accuracy,
		Precision:  result.Metrics.Precision,
		Recall:     result.Metrics.Recall,
		Threshold:  result.Transformer.Threshold(),
		DataPoints: result.TrainSize + result.TestSize,
	})
}
