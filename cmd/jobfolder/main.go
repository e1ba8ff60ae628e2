package main

import (
	"fmt"
	"os"

	"github.com/temirov/jobfolder/internal/cli"
	"github.com/temirov/jobfolder/internal/utils"
)

// main is the entry point for the jobfolder command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(os.Getenv(utils.LogLevelEnvironmentVariable))
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(loggerInstance); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
