package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/boundou-sig/deliblist/internal/converter"
	"github.com/boundou-sig/deliblist/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local HTTP API",
	Long: `Serve exposes the engine over HTTP for the dashboard:

  POST   /api/deliberations?type=   upload a file (multipart field "file")
  GET    /api/deliberations         last report
  GET    /api/deliberations/preview first rows of the list
  GET    /api/deliberations/export  download the list (?format=xlsx|csv)
  DELETE /api/deliberations         reset

Only the last upload is kept, in memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		conv, err := converter.New(cfg, logger)
		if err != nil {
			return err
		}
		return server.New(cfg, conv, logger).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
}
