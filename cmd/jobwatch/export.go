package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-jobwatch/internal/storage"
)

var exportFlags struct {
	target string
	out    string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored screenshot of a target to a PNG file",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.target, "target", "", "target name (required)")
	f.StringVarP(&exportFlags.out, "out", "o", "", "output file (defaults to <slot>.png)")
	_ = exportCmd.MarkFlagRequired("target")
}

func runExport(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	t, ok := rt.cfg.FindTarget(exportFlags.target)
	if !ok {
		return fmt.Errorf("unknown target %q", exportFlags.target)
	}
	if !t.IsImage() {
		return fmt.Errorf("target %q is not in screenshot mode", t.Name)
	}

	data, err := rt.store.Load(cmd.Context(), t.FingerprintSlot())
	if err != nil {
		return fmt.Errorf("load screenshot: %w", err)
	}
	if data == nil {
		return fmt.Errorf("no screenshot stored for %q yet", t.Name)
	}
	img, err := storage.DecodeImageSlot(data)
	if err != nil {
		return err
	}

	out := exportFlags.out
	if out == "" {
		out = t.SlotPrefix() + ".png"
	}
	if err := os.WriteFile(out, img, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "📸 Saved %s (%d bytes)\n", out, len(img))
	return nil
}
