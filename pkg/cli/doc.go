/*
Package cli provides command-line helpers for the realmd command.

Output Formatting:

Commands that print results accept --output text|json|yaml:

	format, err := cli.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Errors and exit codes:

	os.Exit(cli.ExitCode(err))

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM. A second signal exits at once:

	ctx, stop := cli.SetupSignalHandler(context.Background(), logger)
	defer stop()
*/
package cli
