// Package kubernetes implements a HostsParser backed by a Kubernetes
// Service informer, resolving cluster-local Service names the way an
// /etc/hosts entry resolves a static one.
package kubernetes

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/semihalev/zlog/v2"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/cache"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/semihalev/resolve/lookup"
	"github.com/semihalev/resolve/name"
	"github.com/semihalev/resolve/rr"
)

const defaultClusterDomain = "cluster.local"

// Provider resolves names of the form <service>.<namespace>.svc.<clusterDomain>
// to a Service's ClusterIP, kept current by a Kubernetes informer.
type Provider struct {
	clusterDomain name.Name
	clientset     kubernetes.Interface
	informer      cache.SharedInformer

	mu       sync.RWMutex
	byNameV4 map[string]net.IP
	byNameV6 map[string]net.IP

	stop chan struct{}
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithClusterDomain overrides the default "cluster.local" suffix.
func WithClusterDomain(domain string) Option {
	return func(p *Provider) {
		n, err := name.Parse(domain, name.Root)
		if err == nil {
			p.clusterDomain = n
		}
	}
}

// New builds a Provider from a kubeconfig path (empty for in-cluster
// config) and starts its Service informer.
func New(ctx context.Context, kubeconfig string, opts ...Option) (*Provider, error) {
	cfg, err := buildConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("kubernetes: build config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("kubernetes: new client: %w", err)
	}

	domain, err := name.Parse(defaultClusterDomain, name.Root)
	if err != nil {
		return nil, fmt.Errorf("kubernetes: default cluster domain: %w", err)
	}

	p := &Provider{
		clusterDomain: domain,
		clientset:     clientset,
		byNameV4:      make(map[string]net.IP),
		byNameV6:      make(map[string]net.IP),
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.informer = cache.NewSharedInformer(
		cache.NewListWatchFromClient(clientset.CoreV1().RESTClient(), "services", metav1.NamespaceAll, fields.Everything()),
		&corev1.Service{},
		0,
	)
	p.informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc:    p.onServiceChange,
		UpdateFunc: func(_, obj interface{}) { p.onServiceChange(obj) },
		DeleteFunc: p.onServiceDelete,
	})

	go p.informer.Run(p.stop)

	return p, nil
}

func buildConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	return clientcmd.BuildConfigFromFlags("", "")
}

func (p *Provider) serviceName(svc *corev1.Service) (name.Name, error) {
	relative := fmt.Sprintf("%s.%s.svc", svc.Name, svc.Namespace)
	rel, err := name.Parse(relative, name.Name{})
	if err != nil {
		return name.Name{}, err
	}
	return rel.Concat(p.clusterDomain)
}

func (p *Provider) onServiceChange(obj interface{}) {
	svc, ok := obj.(*corev1.Service)
	if !ok {
		return
	}
	if svc.Spec.ClusterIP == "" || svc.Spec.ClusterIP == corev1.ClusterIPNone {
		return
	}

	n, err := p.serviceName(svc)
	if err != nil {
		zlog.Warn("kubernetes: service name too long", "service", svc.Name, "namespace", svc.Namespace, "error", err)
		return
	}
	key := n.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, clusterIP := range allClusterIPs(svc) {
		ip := net.ParseIP(clusterIP)
		if ip == nil {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			p.byNameV4[key] = v4
		} else {
			p.byNameV6[key] = ip
		}
	}
}

func allClusterIPs(svc *corev1.Service) []string {
	if len(svc.Spec.ClusterIPs) > 0 {
		return svc.Spec.ClusterIPs
	}
	return []string{svc.Spec.ClusterIP}
}

func (p *Provider) onServiceDelete(obj interface{}) {
	svc, ok := obj.(*corev1.Service)
	if !ok {
		if tomb, ok := obj.(cache.DeletedFinalStateUnknown); ok {
			svc, ok = tomb.Obj.(*corev1.Service)
			if !ok {
				return
			}
		} else {
			return
		}
	}
	n, err := p.serviceName(svc)
	if err != nil {
		return
	}
	key := n.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byNameV4, key)
	delete(p.byNameV6, key)
}

// AddressForHost implements the lookup package's HostsParser interface.
func (p *Provider) AddressForHost(n name.Name, t rr.Type) (net.IP, error) {
	if !strings.Contains(n.String(), ".svc.") {
		return nil, lookup.ErrNotFound
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	key := n.String()
	switch t {
	case rr.TypeA:
		if ip, ok := p.byNameV4[key]; ok {
			return ip, nil
		}
	case rr.TypeAAAA:
		if ip, ok := p.byNameV6[key]; ok {
			return ip, nil
		}
	}
	return nil, lookup.ErrNotFound
}

// Close stops the underlying informer.
func (p *Provider) Close() error {
	close(p.stop)
	return nil
}
