package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "notifyctl",
	Short: "Notifications service CLI",
	Long:  `An operator CLI to emit test events and inspect notification delivery.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("service-url", "", "base URL of the notifications service (default http://localhost:8086)")
	viper.BindPFlag("service_url", rootCmd.PersistentFlags().Lookup("service-url"))

	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(listCmd)
}

func initConfig() {
	viper.SetEnvPrefix("notifyctl")
	viper.AutomaticEnv()
}

func serviceURL() string {
	if url := viper.GetString("service_url"); url != "" {
		return url
	}
	return "http://localhost:8086"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
