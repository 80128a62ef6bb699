package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"churnpredict/config"
	"churnpredict/ml"
	"churnpredict/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	creditScore := newNumberFlag(flag.CommandLine, "creditscore", "credit score")
	geography := flag.String("geography", "", "France, Spain or Germany")
	gender := flag.String("gender", "", "Male or Female")
	age := newNumberFlag(flag.CommandLine, "age", "age in years")
	tenure := newNumberFlag(flag.CommandLine, "tenure", "years with the bank")
	balance := newNumberFlag(flag.CommandLine, "balance", "account balance")
	products := newNumberFlag(flag.CommandLine, "numofproducts", "number of products")
	hasCard := flag.String("hascrcard", "", "Yes or No")
	active := flag.String("isactivemember", "", "Yes or No")
	salary := newNumberFlag(flag.CommandLine, "estimatedsalary", "estimated salary")
	verbose := flag.Bool("v", false, "print label, confidence and feature vector")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	predictor, err := ml.LoadPredictor(cfg.Artifacts())
	if err != nil {
		log.Fatalf("failed to load artifacts: %v", err)
	}

	raw := pipeline.RawCustomer{
		CreditScore:     creditScore.value,
		Geography:       *geography,
		Gender:          *gender,
		Age:             age.value,
		Tenure:          tenure.value,
		Balance:         balance.value,
		NumOfProducts:   products.value,
		HasCrCard:       *hasCard,
		IsActiveMember:  *active,
		EstimatedSalary: salary.value,
	}

	pred, err := predictor.Predict(context.Background(), raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, ml.DescribeError(err))
		os.Exit(1)
	}
	fmt.Println(pred.Verdict)
	if *verbose {
		fmt.Printf("label=%s confidence=%.3f\n", pred.Label, pred.Confidence)
		for i, name := range ml.FeatureNames() {
			fmt.Printf("  %-20s %.6f\n", name, pred.Features[i])
		}
	}
}
