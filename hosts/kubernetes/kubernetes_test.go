package kubernetes

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/semihalev/resolve/lookup"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	domain, err := name.Parse(defaultClusterDomain, name.Root)
	require.NoError(t, err)
	return &Provider{
		clusterDomain: domain,
		byNameV4:      make(map[string]net.IP),
		byNameV6:      make(map[string]net.IP),
	}
}

func TestServiceNameIsFullyQualified(t *testing.T) {
	p := newTestProvider(t)
	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "kube-dns", Namespace: "kube-system"}}

	n, err := p.serviceName(svc)
	require.NoError(t, err)
	assert.Equal(t, "kube-dns.kube-system.svc.cluster.local.", n.String())
}

func TestOnServiceChangeThenAddressForHost(t *testing.T) {
	p := newTestProvider(t)
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Spec:       corev1.ServiceSpec{ClusterIP: "10.96.0.10"},
	}

	p.onServiceChange(svc)

	n, err := name.Parse("web.default.svc.cluster.local.", name.Root)
	require.NoError(t, err)
	addr, err := p.AddressForHost(n, rr.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "10.96.0.10", addr.String())
}

func TestOnServiceChangeSkipsHeadlessServices(t *testing.T) {
	p := newTestProvider(t)
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "headless", Namespace: "default"},
		Spec:       corev1.ServiceSpec{ClusterIP: corev1.ClusterIPNone},
	}

	p.onServiceChange(svc)

	n, err := name.Parse("headless.default.svc.cluster.local.", name.Root)
	require.NoError(t, err)
	_, err = p.AddressForHost(n, rr.TypeA)
	assert.ErrorIs(t, err, lookup.ErrNotFound)
}

func TestOnServiceDeleteRemovesEntry(t *testing.T) {
	p := newTestProvider(t)
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Spec:       corev1.ServiceSpec{ClusterIP: "10.96.0.10"},
	}
	p.onServiceChange(svc)
	p.onServiceDelete(svc)

	n, err := name.Parse("web.default.svc.cluster.local.", name.Root)
	require.NoError(t, err)
	_, err = p.AddressForHost(n, rr.TypeA)
	assert.ErrorIs(t, err, lookup.ErrNotFound)
}

func TestAddressForHostRejectsNonServiceNames(t *testing.T) {
	p := newTestProvider(t)
	n, err := name.Parse("example.com.", name.Root)
	require.NoError(t, err)
	_, err = p.AddressForHost(n, rr.TypeA)
	assert.ErrorIs(t, err, lookup.ErrNotFound)
}
