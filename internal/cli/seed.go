package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cheeseshop/internal/core"
	"cheeseshop/pkg/domain"
)

type sampleProducer struct {
	producer domain.ProducerInput
	cheeses  []domain.CheeseInput
}

func strPtr(s string) *string { return &s }

var sampleCatalog = []sampleProducer{
	{
		producer: domain.ProducerInput{Name: "Fromagerie Lebeau", FoundingYear: 1952, Region: strPtr("Normandy"), OperationSize: string(domain.SizeFamily)},
		cheeses: []domain.CheeseInput{
			{Kind: "Camembert", IsRawMilk: true, ProductionDate: "2024-03-02", Price: 12.50},
			{Kind: "Livarot", IsRawMilk: true, ProductionDate: "2024-01-18", Price: 18.00},
		},
	},
	{
		producer: domain.ProducerInput{Name: "Caseificio Valle Verde", FoundingYear: 1978, Region: strPtr("Emilia-Romagna"), OperationSize: string(domain.SizeMedium)},
		cheeses: []domain.CheeseInput{
			{Kind: "Parmigiano Reggiano", ProductionDate: "2022-11-05", Price: 38.90},
		},
	},
	{
		producer: domain.ProducerInput{Name: "Alpine Dairy Collective", FoundingYear: 2004, OperationSize: string(domain.SizeCorporate)},
		cheeses: []domain.CheeseInput{
			{Kind: "Gruyere", ProductionDate: "2023-09-12", Price: 22.50},
			{Kind: "Raclette", IsRawMilk: true, ProductionDate: "2023-12-01", Price: 16.75},
		},
	},
}

func seedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample producers and cheeses into the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()
			return seed(cmd.Context(), rt.service, cmd.OutOrStdout())
		},
	}
}

func seed(ctx context.Context, svc *core.Service, out io.Writer) error {
	for _, sample := range sampleCatalog {
		producer, err := svc.CreateProducer(ctx, sample.producer)
		if err != nil {
			return fmt.Errorf("seed producer %q: %w", sample.producer.Name, err)
		}
		for _, in := range sample.cheeses {
			in.ProducerID = producer.ID
			if _, _, err := svc.CreateCheese(ctx, in); err != nil {
				return fmt.Errorf("seed cheese %q: %w", in.Kind, err)
			}
		}
		fmt.Fprintf(out, "producer %d %s (%d cheeses)\n", producer.ID, producer.Name, len(sample.cheeses))
	}
	return nil
}
