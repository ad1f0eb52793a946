package storeerr

import "errors"

// Taxonomie d'erreurs du cœur panier/commande. Les handlers traduisent
// vers un statut HTTP avec errors.Is ; le détail interne reste dans les logs.
var (
	// ErrNotFound : panier, produit ou ligne référencé absent.
	ErrNotFound = errors.New("ressource introuvable")

	// ErrInvalidAmount : montant de paiement non strictement positif.
	ErrInvalidAmount = errors.New("montant invalide")

	// ErrInvalidOrder : commande sans lignes ou avec un total non positif.
	ErrInvalidOrder = errors.New("commande invalide")

	// ErrStorage : persistance indisponible ou écriture échouée.
	// Aucune application partielle n'est possible côté stockage.
	ErrStorage = errors.New("erreur de persistance")

	// ErrPayment : le prestataire de paiement a rejeté ou échoué.
	ErrPayment = errors.New("erreur du prestataire de paiement")
)
