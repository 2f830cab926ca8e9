package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/google/subcommands"
	"github.com/nrtkbb/forensic/cmd/scan"
	"github.com/nrtkbb/forensic/cmd/testdata"
	"github.com/nrtkbb/forensic/cmd/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// initTracer initializes the OpenTelemetry tracer provider. Spans go to
// stderr so they never mix with records on stdout.
func initTracer() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, err
	}

	resource := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("forensic"),
		semconv.ServiceVersion(version.Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource),
	)
	otel.SetTracerProvider(tp)

	return tp, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	traceFlag := flag.Bool("trace", false, "export OpenTelemetry spans to stderr")

	// Register subcommands
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&scan.Command{}, "")
	subcommands.Register(&version.Command{}, "")
	subcommands.Register(&testdata.Command{}, "")
	subcommands.ImportantFlag("trace")

	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 1
	}

	// Without -trace the global no-op provider stays in place.
	if *traceFlag {
		tp, err := initTracer()
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Printf("Error shutting down tracer provider: %v", err)
			}
		}()
	}

	ctx := context.Background()
	return exitCode(subcommands.Execute(ctx))
}

// exitCode reports usage errors, such as unknown flags, as configuration
// failures: 0 on success, 1 otherwise.
func exitCode(status subcommands.ExitStatus) int {
	if status == subcommands.ExitUsageError {
		return int(subcommands.ExitFailure)
	}
	return int(status)
}
