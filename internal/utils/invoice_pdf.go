package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"boutique_back_end/internal/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/skip2/go-qrcode"
)

// GenerateSepaQR génère un QR SEPA (EPC) en base64 prêt à mettre dans <img src="...">
func GenerateSepaQR(iban, bic, name, ref string, amount float64) (string, error) {
	// format EPC basique
	sepa := fmt.Sprintf(`BCD
001
1
SCT
%s
%s
%s
EUR%.2f
%s`, bic, name, iban, amount, ref)

	png, err := qrcode.Encode(sepa, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// InvoiceHTML construit la facture de la commande (le QR SEPA est optionnel).
func InvoiceHTML(order models.Order, items []models.OrderItem, qrBase64 string) string {
	rows := ""
	for _, item := range items {
		rows += fmt.Sprintf(`<tr><td>%s</td><td>%d</td><td>%.2f€</td><td>%.2f€</td></tr>`,
			item.Name, item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}

	qrBlock := ""
	if qrBase64 != "" {
		qrBlock = fmt.Sprintf(`<div style="margin-top:30px"><p>Virement SEPA :</p><img src="%s" width="160" height="160"></div>`, qrBase64)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Facture %s</title></head>
<body style="font-family: Arial, sans-serif; padding: 40px;">
	<h1>Facture</h1>
	<p>Commande %s — %s</p>
	<table style="width:100%%; border-collapse: collapse;" border="1" cellpadding="8">
		<thead><tr><th>Produit</th><th>Quantité</th><th>Prix unitaire</th><th>Total</th></tr></thead>
		<tbody>%s</tbody>
	</table>
	<h3 style="text-align:right">Total : %.2f€</h3>
	%s
</body>
</html>`, order.ID, order.ID, order.OrderDate.Format("02/01/2006"), rows, order.Total, qrBlock)
}

// RenderInvoicePDF imprime la facture HTML en PDF via Chrome headless.
// L'échec n'est pas bloquant pour le flux de commande : l'appelant logge
// et envoie l'e-mail sans pièce jointe.
func RenderInvoicePDF(html string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var pdfBuf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate(dataURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
