package kuvaserver

import (
	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/ossignal"
	"github.com/function61/gokit/stopper"
	"github.com/spf13/cobra"
)

func Entrypoint() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the thumbnail server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rootLogger := logex.StandardLogger()
			logl := logex.Levels(rootLogger)

			scf, err := ReadConfigFile()
			if err != nil {
				panic(err)
			}

			workers := stopper.NewManager()

			go func() {
				logl.Info.Printf("got %s; stopping", <-ossignal.InterruptOrTerminate())

				workers.StopAllWorkersAndWait()
			}()

			if err := runServer(scf, rootLogger, workers.Stopper()); err != nil {
				panic(err)
			}

			logl.Info.Println("stopped")
		},
	}
}
