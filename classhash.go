// Package classhash rewrites the CSS class names of a built site into short
// salted hashes, consistently across stylesheets and markup.
//
// A run walks a fixed sequence of stages over one registry of class tokens:
//
//	init -> scan -> css -> html -> persist -> verify -> done
//
// The scan stage seeds the registry from template sources, the css and html
// stages rewrite the output tree in place, persist writes the obfuscation
// map and verify samples the result.
//
//	p, err := classhash.New(classhash.Config{
//		Salt:      os.Getenv("OBFUSCATION_SALT"),
//		SourceDir: "src",
//		OutputDir: "dist",
//	})
//	if err != nil {
//		return err
//	}
//	result, err := p.Run()
//
// When a build tool runs the stylesheet and markup stages in separate
// processes, set Config.Mailbox and call the stage hooks instead of Run.
//
// # CLI Tool
//
// classhash also provides a CLI tool. Install with:
//
//	go install github.com/yacobolo/classhash/cmd/classhash@latest
package classhash
