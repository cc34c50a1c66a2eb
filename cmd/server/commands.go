package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "Print the text recognized in an image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		text, err := newPipeline().ExtractText(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("ocr %s: %w", args[0], err)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	},
}

var (
	renderTitle string
	renderText  string
	renderImage string
	renderOut   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write a PDF from --text, or from the text recognized in --image",
	RunE: func(cmd *cobra.Command, args []string) error {
		textSet := cmd.Flags().Changed("text")
		if textSet == (renderImage != "") {
			return errors.New("exactly one of --text or --image is required")
		}

		out, err := os.Create(renderOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}

		p := newPipeline()
		if textSet {
			err = p.GeneratePDF(cmd.Context(), renderTitle, renderText, out)
		} else {
			var data []byte
			data, err = os.ReadFile(renderImage)
			if err == nil {
				err = p.ImageToPDF(cmd.Context(), filepath.Base(renderImage), renderTitle, data, out)
			}
		}
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(renderOut)
			return fmt.Errorf("render: %w", err)
		}

		logger.Info().Str("out", renderOut).Msg("wrote pdf")
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "document title (default depends on the source)")
	renderCmd.Flags().StringVar(&renderText, "text", "", "body text")
	renderCmd.Flags().StringVar(&renderImage, "image", "", "image to run OCR on")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "document.pdf", "output path")
}
