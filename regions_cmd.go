package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kittycrypto-gg/readaloud/internal/store"
	"github.com/kittycrypto-gg/readaloud/speak/region"
	"github.com/kittycrypto-gg/readaloud/speak/synth"
)

var lockRegion string

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Resolve which speech region accepts the configured credential",
	Long: paragraph(
		fmt.Sprintf("\nProbe candidate regions for the configured credential and %s the winner for later sessions. Use --lock to pin a region and skip probing entirely.", keyword("remember")),
	),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		credential := viper.GetString("key")
		if credential == "" {
			return errors.New("no speech credential configured (set key in the config file or READALOUD_KEY)")
		}

		dataDir, err := store.DefaultDir()
		if err != nil {
			return err
		}
		resourceStore := store.NewResourceStore(dataDir)

		if lockRegion != "" {
			res := region.Resource{Credential: credential, Region: lockRegion, Locked: true}
			if err := resourceStore.Save(res); err != nil {
				return fmt.Errorf("unable to lock region: %w", err)
			}
			fmt.Printf("Locked region %s. Probing is disabled until the lock is removed.\n", keyword(lockRegion))
			return nil
		}

		client := synth.NewClient(synth.DefaultConfig())
		resolver := region.NewResolver(client, resourceStore)

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		result, err := resolver.Resolve(ctx, credential, viper.GetString("region"))
		if err != nil {
			return fmt.Errorf("region resolution failed: %w", err)
		}

		switch result.Reason {
		case region.ReasonOK:
			fmt.Printf("Region %s accepted the credential and was saved.\n", keyword(result.Region))
		case region.ReasonCached:
			fmt.Printf("Using remembered region %s.\n", keyword(result.Region))
		case region.ReasonLocked:
			fmt.Printf("Region %s is locked.\n", keyword(result.Region))
		case region.ReasonRateLimited:
			return errors.New("the provider rate limited the probes; try again later")
		case region.ReasonNotFound:
			return errors.New("no candidate region accepted the credential")
		default:
			return fmt.Errorf("resolution ended with %s", result.Reason)
		}
		return nil
	},
}

func init() {
	regionsCmd.Flags().StringVar(&lockRegion, "lock", "", "pin this region and disable probing")
}
