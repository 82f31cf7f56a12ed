// Package incidex embeds the incident-to-product transferability engine.
//
// The engine ranks recorded AI incidents by relevance to a product, scores how
// well a given incident transfers to the product along the six PRISM
// dimensions and explains the match in plain text. Scores come from a chat
// completion oracle; when the oracle fails the engine returns neutral
// fallback assessments instead of errors.
//
// # Catalog backends
//
//	engine, _ := incidex.New(ctx, incidex.WithDataset("catalog.yaml"))
//	engine, _ := incidex.New(ctx, incidex.WithSQLite("incidents.db"))
//	engine, _ := incidex.New(ctx, incidex.WithPostgres(dsn))
//	engine, _ := incidex.New(ctx, incidex.WithRedis("localhost:6379", ""))
//
// # Ranking and scoring
//
//	ranked, _ := engine.Rank(ctx, 1, incidex.RankOptions{Limit: 5, SortBy: incidex.SortRelevance})
//
//	engine, _ = incidex.New(ctx,
//	    incidex.WithDataset("catalog.yaml"),
//	    incidex.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", "gpt-4o-mini"),
//	)
//	a, _ := engine.Score(ctx, 1, 42, incidex.ScoreOptions{Mode: incidex.ModePrism})
//	text, _ := engine.Explain(ctx, 1, 42, incidex.ExplainFullPrism)
package incidex
