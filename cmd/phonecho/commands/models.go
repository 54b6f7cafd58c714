package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/phonecho/phonecho/pkg/cli"
	"github.com/phonecho/phonecho/pkg/models"
)

var (
	modelsBucket   string
	modelsPrefix   string
	modelsRegion   string
	modelsEndpoint string
	modelsCacheDir string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage cached model artifacts",
	Long: `Manage the local cache of acoustic model artifacts.

Each model consists of <name>.onnx and <name>.tokens.txt, fetched from
an S3-compatible bucket. Credentials come from the standard
AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY environment variables;
anonymous access is used when they are unset.`,
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull [name]",
	Short: "Fetch model artifacts into the local cache",
	Long: `Download a model's artifacts, replacing any cached copies.

With no name, the default model is pulled.

Examples:
  phonecho models pull --bucket phonecho-models
  phonecho models pull zipa-small-crctc-ns-700k --bucket phonecho-models --endpoint https://minio.local:9000`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsBucket == "" {
			return fmt.Errorf("--bucket is required")
		}
		name := models.DefaultModel
		if len(args) == 1 {
			name = args[0]
		}

		mgr, err := models.New(newS3Client(), models.Options{
			Bucket:   modelsBucket,
			Prefix:   modelsPrefix,
			CacheDir: modelsCacheDir,
		})
		if err != nil {
			return err
		}

		paths, err := mgr.Pull(cmd.Context(), name)
		if err != nil {
			return err
		}
		for _, f := range []string{paths.Model, paths.Tokens} {
			info, err := os.Stat(f)
			if err != nil {
				return err
			}
			cli.PrintSuccess("%s (%s)", f, cli.FormatBytes(info.Size()))
		}
		return nil
	},
}

var modelsPathCmd = &cobra.Command{
	Use:   "path [name]",
	Short: "Print the cache paths of a model's artifacts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := models.DefaultModel
		if len(args) == 1 {
			name = args[0]
		}
		mgr, err := models.New(newS3Client(), models.Options{
			Bucket:   "unused",
			CacheDir: modelsCacheDir,
		})
		if err != nil {
			return err
		}
		paths := mgr.Paths(name)
		return outputResult(map[string]string{
			"model":  paths.Model,
			"tokens": paths.Tokens,
		})
	},
}

// newS3Client builds an S3 client from flags and the AWS environment.
func newS3Client() *s3.Client {
	opts := s3.Options{Region: modelsRegion}
	if modelsEndpoint != "" {
		opts.BaseEndpoint = aws.String(modelsEndpoint)
		opts.UsePathStyle = true
	}
	key, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if key != "" && secret != "" {
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: key, SecretAccessKey: secret}, nil
		})
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}

func init() {
	modelsCmd.PersistentFlags().StringVar(&modelsBucket, "bucket", "", "S3 bucket holding model artifacts")
	modelsCmd.PersistentFlags().StringVar(&modelsPrefix, "prefix", "", "key prefix within the bucket")
	modelsCmd.PersistentFlags().StringVar(&modelsRegion, "region", "us-east-1", "bucket region")
	modelsCmd.PersistentFlags().StringVar(&modelsEndpoint, "endpoint", "", "custom S3 endpoint (MinIO, R2, ...)")
	modelsCmd.PersistentFlags().StringVar(&modelsCacheDir, "cache-dir", "", "artifact cache directory (default: user cache)")

	modelsCmd.AddCommand(modelsPullCmd)
	modelsCmd.AddCommand(modelsPathCmd)
	rootCmd.AddCommand(modelsCmd)
}
